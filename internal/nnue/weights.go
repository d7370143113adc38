package nnue

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/chessplay/engine/internal/elog"
)

// Weight file format constants.
const (
	MagicNumber = 0x46524B53 // "FRKS" - Feature-based RKISS Stockfish-like format
	Version     = 2          // single hidden layer, 512-wide accumulators
)

// FileHeader is the header of the weight file. The layout after the header
// is fixed: L0 weights, L0 bias, L1 weights, L1 bias, in that order.
type FileHeader struct {
	Magic      uint32
	Version    uint32
	InputSize  uint32
	HiddenSize uint32
}

// LoadWeights loads network weights from a binary file, logging an xxhash64
// of the raw blob so a particular weight file can be identified in engine
// diagnostics and bench output regardless of its filename.
func (n *Network) LoadWeights(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		elog.Get().Errorf("nnue: failed to read weights file %s: %v", filename, err)
		return fmt.Errorf("failed to read weights file: %w", err)
	}

	if err := n.LoadWeightsFromReader(bytes.NewReader(data)); err != nil {
		elog.Get().Errorf("nnue: failed to load weights from %s: %v", filename, err)
		return err
	}

	elog.Get().Infof("nnue: loaded %s (%d bytes, xxhash64=%016x)", filename, len(data), xxhash.Sum64(data))
	return nil
}

// SaveWeights saves network weights to a binary file.
func (n *Network) SaveWeights(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer f.Close()

	header := FileHeader{
		Magic:      MagicNumber,
		Version:    Version,
		InputSize:  InputSize,
		HiddenSize: HiddenSize,
	}
	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < InputSize; i++ {
		if err := binary.Write(f, binary.LittleEndian, &n.L0Weights[i]); err != nil {
			return fmt.Errorf("failed to write L0 weights at %d: %w", i, err)
		}
	}
	if err := binary.Write(f, binary.LittleEndian, &n.L0Bias); err != nil {
		return fmt.Errorf("failed to write L0 bias: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.L1Weights); err != nil {
		return fmt.Errorf("failed to write L1 weights: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.L1Bias); err != nil {
		return fmt.Errorf("failed to write L1 bias: %w", err)
	}

	return nil
}

// LoadWeightsFromReader loads network weights from an io.Reader, in the
// same fixed field order SaveWeights writes.
func (n *Network) LoadWeightsFromReader(r io.Reader) error {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != MagicNumber {
		return fmt.Errorf("invalid magic number: expected %x, got %x", MagicNumber, header.Magic)
	}
	if header.Version != Version {
		return fmt.Errorf("unsupported version: expected %d, got %d", Version, header.Version)
	}
	if header.InputSize != InputSize {
		return fmt.Errorf("input size mismatch: expected %d, got %d", InputSize, header.InputSize)
	}
	if header.HiddenSize != HiddenSize {
		return fmt.Errorf("hidden size mismatch: expected %d, got %d", HiddenSize, header.HiddenSize)
	}

	for i := 0; i < InputSize; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.L0Weights[i]); err != nil {
			return fmt.Errorf("failed to read L0 weights at %d: %w", i, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &n.L0Bias); err != nil {
		return fmt.Errorf("failed to read L0 bias: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.L1Weights); err != nil {
		return fmt.Errorf("failed to read L1 weights: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.L1Bias); err != nil {
		return fmt.Errorf("failed to read L1 bias: %w", err)
	}

	return nil
}
