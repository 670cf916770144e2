// internal/fixture/random.go
package fixture

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cactus-core/dna"
	"cactus-core/fasta"
	"cactus-core/newick"

	"github.com/bioswarm/cactus/internal/ctxlog"
)

// File suffixes written by Random. Only the first file is guaranteed to be
// complete; later ones may carry the incomplete marker.
const (
	SuffixComplete   = ".fa"
	SuffixIncomplete = ".fa.incomplete"
)

const nameLength = 15

// Options drives Random. A negative count is drawn at random:
// SequenceNumber in [0,100), AvgSequenceLength in [1,5000),
// TreeLeafNumber in [1,10). Seed 0 picks a time-based seed.
type Options struct {
	SequenceNumber    int
	AvgSequenceLength int
	TreeLeafNumber    int
	Seed              uint64
}

// DefaultOptions draws everything at random.
func DefaultOptions() Options {
	return Options{SequenceNumber: -1, AvgSequenceLength: -1, TreeLeafNumber: -1}
}

// Stats describes what Random produced.
type Stats struct {
	Seed              uint64
	SequenceNumber    int
	AvgSequenceLength int
	TreeLeafNumber    int
	Files             []string
	Directories       int
}

// NewRand returns the generator used for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type openFile struct {
	f *os.File
	w *fasta.Writer
}

func (o *openFile) close() error {
	if err := o.w.Flush(); err != nil {
		_ = o.f.Close()
		return err
	}
	return o.f.Close()
}

// Random writes a random set of related sequences under tempDir and returns
// a bundle pairing one new directory per tree leaf with a random binary
// tree. Sequences descend from a shared parent that is occasionally
// resampled, are mutated, sometimes reverse complemented, and land in files
// that are closed at random so several files may share a directory.
func Random(ctx context.Context, tempDir string, o Options) (Bundle, Stats, error) {
	log := ctxlog.FromContext(ctx)

	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
	r := NewRand(o.Seed)
	if o.SequenceNumber < 0 {
		o.SequenceNumber = r.IntN(100)
	}
	if o.AvgSequenceLength < 0 {
		o.AvgSequenceLength = 1 + r.IntN(4999)
	}
	if o.TreeLeafNumber < 0 {
		o.TreeLeafNumber = 1 + r.IntN(9)
	}
	st := Stats{
		Seed:              o.Seed,
		SequenceNumber:    o.SequenceNumber,
		AvgSequenceLength: o.AvgSequenceLength,
		TreeLeafNumber:    o.TreeLeafNumber,
	}
	if o.AvgSequenceLength < 1 {
		return Bundle{}, st, fmt.Errorf("average sequence length must be ≥ 1, got %d", o.AvgSequenceLength)
	}

	tree, err := newick.RandomBinary(r, o.TreeLeafNumber)
	if err != nil {
		return Bundle{}, st, err
	}
	treeText := tree.String(true)
	leaves := tree.Leaves()
	log.Info("made random binary tree", "tree", treeText, "seed", o.Seed)

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return Bundle{}, st, err
	}
	dirs := make([]string, 0, len(leaves))
	for range leaves {
		d, err := mkdirRandom(r, tempDir)
		if err != nil {
			return Bundle{}, st, err
		}
		dirs = append(dirs, d)
	}
	st.Directories = len(dirs)
	log.Info("made sequence directories", "dirs", strings.Join(dirs, " "))

	randomParent := func() []byte {
		return dna.RandomSequence(r, 1+r.IntN(2*o.AvgSequenceLength-1))
	}
	parent := randomParent()

	var cur *openFile
	first := true
	for i := 0; i < o.SequenceNumber; i++ {
		if err := ctx.Err(); err != nil {
			if cur != nil {
				_ = cur.close()
			}
			return Bundle{}, st, err
		}
		if cur == nil {
			suffix := SuffixComplete
			if !first && r.Float64() > 0.5 {
				suffix = SuffixIncomplete
			}
			first = false
			f, err := createRandom(r, dirs[r.IntN(len(dirs))], suffix)
			if err != nil {
				return Bundle{}, st, err
			}
			cur = &openFile{f: f, w: fasta.NewWriter(f)}
			st.Files = append(st.Files, f.Name())
		}
		if r.Float64() > 0.8 {
			parent = randomParent()
		}
		seq := dna.Mutate(r, parent, r.Float64()*0.5)
		name := dna.RandomName(r, nameLength)
		if r.Float64() > 0.5 {
			seq = dna.RevComp(seq)
		}
		if err := cur.w.Write(name, seq); err != nil {
			_ = cur.close()
			return Bundle{}, st, fmt.Errorf("writing %s: %w", cur.f.Name(), err)
		}
		if r.Float64() > 0.5 {
			if err := cur.close(); err != nil {
				return Bundle{}, st, err
			}
			cur = nil
		}
	}
	if cur != nil {
		if err := cur.close(); err != nil {
			return Bundle{}, st, err
		}
	}
	log.Info("made sequences", "sequences", o.SequenceNumber, "files", len(st.Files), "dirs", len(dirs))

	return Bundle{Sequences: dirs, Tree: treeText, Source: fmt.Sprintf("random:seed=%d", o.Seed)}, st, nil
}

// mkdirRandom creates a fresh directory with a seed-derived name.
func mkdirRandom(r *rand.Rand, parent string) (string, error) {
	for try := 0; try < 100; try++ {
		d := filepath.Join(parent, "tmp_"+dna.RandomName(r, 10))
		err := os.Mkdir(d, 0o755)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("could not create a unique directory in %s", parent)
}

// createRandom creates a fresh file with a seed-derived name.
func createRandom(r *rand.Rand, dir, suffix string) (*os.File, error) {
	for try := 0; try < 100; try++ {
		p := filepath.Join(dir, "tmp_"+dna.RandomName(r, 10)+suffix)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not create a unique file in %s", dir)
}
