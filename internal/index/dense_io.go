package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Single-file binary layout for dense indexes. Little-endian throughout:
// magic "HDIX", version u32, kind u8, then the kind-specific sections.
var denseMagic = [4]byte{'H', 'D', 'I', 'X'}

const (
	denseVersion = 1
	kindFlat     = uint8(0)
	kindIVF      = uint8(1)
)

func (f *Flat) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dense index file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := writeHeader(w, kindFlat); err != nil {
		return err
	}
	if err := writeAll(w, uint32(f.dim), uint32(f.NTotal()), f.vecs); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

func (v *IVF) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dense index file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := writeHeader(w, kindIVF); err != nil {
		return err
	}
	nlist := uint32(len(v.listIDs))
	if err := writeAll(w, uint32(v.dim), nlist, uint32(v.nprobe), uint32(v.total), v.centroids); err != nil {
		return err
	}
	for i := range v.listIDs {
		if err := writeAll(w, uint32(len(v.listIDs[i])), v.listIDs[i], v.listVecs[i]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// LoadDense reconstructs an index from a file written by WriteFile.
// nprobe overrides the stored probe count when positive, so serving config
// can retune an IVF index without rebuilding it.
func LoadDense(path string, nprobe int) (Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dense index file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read dense index header: %w", err)
	}
	if magic != denseMagic {
		return nil, fmt.Errorf("not a dense index file: %s", path)
	}
	var version uint32
	var kind uint8
	if err := readAll(r, &version, &kind); err != nil {
		return nil, err
	}
	if version != denseVersion {
		return nil, fmt.Errorf("unsupported dense index version %d", version)
	}

	switch kind {
	case kindFlat:
		var dim, count uint32
		if err := readAll(r, &dim, &count); err != nil {
			return nil, err
		}
		vecs := make([]float32, int(dim)*int(count))
		if err := readAll(r, vecs); err != nil {
			return nil, err
		}
		return &Flat{dim: int(dim), vecs: vecs}, nil

	case kindIVF:
		var dim, nlist, storedProbe, total uint32
		if err := readAll(r, &dim, &nlist, &storedProbe, &total); err != nil {
			return nil, err
		}
		centroids := make([]float32, int(nlist)*int(dim))
		if err := readAll(r, centroids); err != nil {
			return nil, err
		}
		idx := &IVF{
			dim:       int(dim),
			nprobe:    int(storedProbe),
			centroids: centroids,
			listIDs:   make([][]int32, nlist),
			listVecs:  make([][]float32, nlist),
			total:     int(total),
		}
		if nprobe > 0 {
			idx.nprobe = nprobe
		}
		for i := 0; i < int(nlist); i++ {
			var length uint32
			if err := readAll(r, &length); err != nil {
				return nil, err
			}
			idx.listIDs[i] = make([]int32, length)
			idx.listVecs[i] = make([]float32, int(length)*int(dim))
			if err := readAll(r, idx.listIDs[i], idx.listVecs[i]); err != nil {
				return nil, err
			}
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("unknown dense index kind %d", kind)
	}
}

func writeHeader(w *bufio.Writer, kind uint8) error {
	if _, err := w.Write(denseMagic[:]); err != nil {
		return err
	}
	return writeAll(w, uint32(denseVersion), kind)
}

func writeAll(w *bufio.Writer, values ...any) error {
	for _, v := range values {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("failed to write dense index data: %w", err)
		}
	}
	return nil
}

func readAll(r *bufio.Reader, values ...any) error {
	for _, v := range values {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("failed to read dense index data: %w", err)
		}
	}
	return nil
}
