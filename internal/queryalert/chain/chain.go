package chain

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// Chain links records so that editing, dropping or reordering any of
// them breaks every hash after it:
//
//	hash = SHA256(hash_prev + "|" + canonical(record))
//
// A Chain is not safe for concurrent use.
type Chain struct {
	head  string
	index int
}

// New resumes a chain from st; nil starts a fresh chain.
func New(st *State) *Chain {
	if st == nil {
		st = NewState()
	}
	head := st.LastHeadHash
	if head == "" {
		head = ZeroHash
	}
	return &Chain{head: head, index: st.LastChainIndex}
}

// State returns the current head for persistence.
func (c *Chain) State() *State {
	return &State{LastChainIndex: c.index, LastHeadHash: c.head}
}

// Seal adds hash_prev, hash and hash_chain_index to record and advances
// the chain. record is modified in place.
func (c *Chain) Seal(record map[string]interface{}) error {
	canon, err := Canonicalize(record)
	if err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}
	next := link(c.head, canon)

	c.index++
	record[FieldHashPrev] = c.head
	record[FieldHash] = next
	record[FieldHashIndex] = c.index
	c.head = next
	return nil
}

// SealLine decodes one JSON object, seals it and returns the encoded
// record without a trailing newline.
func (c *Chain) SealLine(line []byte) ([]byte, error) {
	record, err := decodeRecord(line)
	if err != nil {
		return nil, err
	}
	if err := c.Seal(record); err != nil {
		return nil, err
	}
	out, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return out, nil
}

// Compute reads NDJSON records from input, writes the sealed records to
// output and returns the resulting state and record count.
func Compute(input io.Reader, output io.Writer, st *State) (*State, int, error) {
	log := logger.L()
	c := New(st)
	start := time.Now()
	log.Debugw("chain.compute: start", "start_index", c.index)

	scanner := newScanner(input)
	writer := bufio.NewWriter(output)
	defer writer.Flush()

	processed := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out, err := c.SealLine(line)
		if err != nil {
			return nil, processed, err
		}
		if _, err := writer.Write(append(out, '\n')); err != nil {
			return nil, processed, fmt.Errorf("write record: %w", err)
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		return nil, processed, fmt.Errorf("scan input: %w", err)
	}

	log.Infow("chain.compute: done", "records", processed, "end_index", c.index, "duration", time.Since(start))
	return c.State(), processed, nil
}

// Result is the outcome of verifying a sealed stream.
type Result struct {
	Records  int
	Tampered []int // hash_chain_index of every record that fails to link
	Head     string
}

// OK reports whether every record linked.
func (r Result) OK() bool { return len(r.Tampered) == 0 }

// Verify recomputes every hash in a sealed NDJSON stream. A record is
// tampered when its hash_prev differs from the previous record's hash or
// its stored hash differs from the recomputed one. The first record must
// link to start, which is ZeroHash for a chain that began in this stream.
func Verify(input io.Reader, start string) (Result, error) {
	log := logger.L()
	began := time.Now()
	if start == "" {
		start = ZeroHash
	}

	res := Result{Tampered: make([]int, 0), Head: start}
	scanner := newScanner(input)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		record, err := decodeRecord(line)
		if err != nil {
			return res, err
		}

		prev, _ := record[FieldHashPrev].(string)
		got, _ := record[FieldHash].(string)
		idx := recordIndex(record[FieldHashIndex], res.Records+1)

		canon, err := Canonicalize(record)
		if err != nil {
			return res, fmt.Errorf("canonicalize: %w", err)
		}
		if prev != res.Head || link(prev, canon) != got {
			res.Tampered = append(res.Tampered, idx)
		}
		res.Head = got
		res.Records++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan input: %w", err)
	}

	log.Infow("chain.verify: done", "records", res.Records, "tampered", len(res.Tampered), "duration", time.Since(began))
	return res, nil
}

func link(prev, canon string) string {
	h := sha256.Sum256([]byte(prev + "|" + canon))
	return hex.EncodeToString(h[:])
}

// decodeRecord keeps numbers as json.Number so re-encoding is lossless.
func decodeRecord(line []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var record map[string]interface{}
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("decode record: not a JSON object")
	}
	return record, nil
}

func recordIndex(v interface{}, fallback int) int {
	n, ok := v.(json.Number)
	if !ok {
		return fallback
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return fallback
	}
	return i
}

// alert records carry full SQL text, which can exceed bufio's 64KiB default.
func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return s
}
