package repertoire

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AminoAlphabet holds the 20 standard amino acids.
const AminoAlphabet = "ACDEFGHIKLMNPQRSTVWY"

const sequenceColumn = "cdr3aa"

var ErrNoSequences = errors.New("no CDR3 sequences available")

// GenerateSynthetic draws n random CDR3-like sequences with lengths uniform
// in [minLen, maxLen].
func GenerateSynthetic(rng *rand.Rand, n, minLen, maxLen int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("sequence count must be >= 0, got %d", n)
	}
	if minLen < 1 || maxLen < minLen {
		return nil, fmt.Errorf("invalid length range [%d,%d]", minLen, maxLen)
	}
	sequences := make([]string, n)
	var b strings.Builder
	for i := range sequences {
		length := minLen + rng.Intn(maxLen-minLen+1)
		b.Reset()
		b.Grow(length)
		for j := 0; j < length; j++ {
			b.WriteByte(AminoAlphabet[rng.Intn(len(AminoAlphabet))])
		}
		sequences[i] = b.String()
	}
	return sequences, nil
}

// ReadCSV reads the cdr3aa column of a headed CSV stream.
func ReadCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, err
	}
	column := -1
	for i, name := range header {
		if strings.TrimSpace(name) == sequenceColumn {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, fmt.Errorf("csv header has no %q column", sequenceColumn)
	}

	sequences := make([]string, 0, 256)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if column >= len(row) {
			return nil, fmt.Errorf("csv row has %d columns, need %d", len(row), column+1)
		}
		sequences = append(sequences, row[column])
	}
	return sequences, nil
}

func WriteCSV(w io.Writer, sequences []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{sequenceColumn}); err != nil {
		return err
	}
	for _, seq := range sequences {
		if err := writer.Write([]string{seq}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// EnsureDataset loads sequences from path, or generates 200 synthetic ones of
// length 12..16 and writes them there. The bool reports whether the data was
// generated.
func EnsureDataset(path string, rng *rand.Rand) ([]string, bool, error) {
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		sequences, err := ReadCSV(file)
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", path, err)
		}
		return sequences, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	sequences, err := GenerateSynthetic(rng, 200, 12, 16)
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, err
	}
	out, err := os.Create(path)
	if err != nil {
		return nil, false, err
	}
	defer out.Close()
	if err := WriteCSV(out, sequences); err != nil {
		return nil, false, fmt.Errorf("write %s: %w", path, err)
	}
	return sequences, true, nil
}

// DominantLengthSubset keeps the sequences of the most common length. Ties go
// to the shorter length.
func DominantLengthSubset(sequences []string) ([]string, int) {
	if len(sequences) == 0 {
		return nil, 0
	}
	counts := make(map[int]int)
	for _, seq := range sequences {
		counts[len(seq)]++
	}
	lengths := make([]int, 0, len(counts))
	for length := range counts {
		lengths = append(lengths, length)
	}
	sort.Ints(lengths)
	dominant := lengths[0]
	for _, length := range lengths[1:] {
		if counts[length] > counts[dominant] {
			dominant = length
		}
	}

	subset := make([]string, 0, counts[dominant])
	for _, seq := range sequences {
		if len(seq) == dominant {
			subset = append(subset, seq)
		}
	}
	return subset, dominant
}

// Hamming counts differing positions of two equal-length sequences.
func Hamming(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("sequence lengths differ: %d != %d", len(a), len(b))
	}
	diff := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff, nil
}
