package nnue

// Network holds the NNUE weights: one input layer feeding the pair of
// perspective accumulators, and one output layer reducing the concatenated,
// clipped-ReLU accumulators to a single scalar.
type Network struct {
	L0Weights [InputSize][HiddenSize]int16
	L0Bias    [HiddenSize]int16

	// L1Weights is laid out [own 0:HiddenSize | opp HiddenSize:2*HiddenSize].
	L1Weights [2 * HiddenSize]int16
	L1Bias    int32
}

// NewNetwork creates a network with zero weights (must load weights or init
// random before use).
func NewNetwork() *Network {
	return &Network{}
}

// Forward computes the network output from the side-to-move's and the
// opponent's accumulator values, returning centipawns.
func (n *Network) Forward(own, opp *[HiddenSize]int16) int {
	sum := n.L1Bias
	for i := 0; i < HiddenSize; i++ {
		sum += ClippedReLU(own[i]) * int32(n.L1Weights[i])
		sum += ClippedReLU(opp[i]) * int32(n.L1Weights[HiddenSize+i])
	}
	return int(sum / OutputDivisor)
}

// InitRandom initializes weights with small deterministic random values, for
// smoke-testing the plumbing without a real weight file.
func (n *Network) InitRandom(seed int64) {
	state := uint64(seed)
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16((state >> 48) & 0xFF) - 128
	}

	for i := 0; i < InputSize; i++ {
		for j := 0; j < HiddenSize; j++ {
			n.L0Weights[i][j] = next() >> 5
		}
	}
	for i := 0; i < HiddenSize; i++ {
		n.L0Bias[i] = next() >> 3
	}
	for i := 0; i < 2*HiddenSize; i++ {
		n.L1Weights[i] = next() >> 4
	}
	n.L1Bias = int32(next()) * 100
}
