package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// State is the rolling chain head persisted between runs so that a new
// run appends to the existing chain instead of starting over.
type State struct {
	LastChainIndex int    `json:"last_chain_index"`
	LastHeadHash   string `json:"last_head_hash"`
}

// ZeroHash is the genesis head: 64 hex zeros, the width of a SHA-256 digest.
var ZeroHash = strings.Repeat("0", 64)

// NewState returns the state of an empty chain.
func NewState() *State {
	return &State{LastChainIndex: 0, LastHeadHash: ZeroHash}
}

// LoadState reads chain state from path. An empty path or a missing file
// yields a fresh chain.
func LoadState(path string) (*State, error) {
	if path == "" {
		return NewState(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("open state: %w", err)
	}
	defer f.Close()

	var st State
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.LastHeadHash == "" {
		st.LastHeadHash = ZeroHash
	}
	return &st, nil
}

// SaveState writes state through a temp file and rename so a crash never
// leaves a half-written state file behind. An empty path is a no-op.
func SaveState(path string, st *State) error {
	if path == "" {
		return nil
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(st); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode state: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp state: %w", err)
	}
	return os.Rename(tmp, path)
}
