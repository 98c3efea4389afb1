package lira

// Binarized per-order staging files. Each order of the ARPA file is
// scanned once into a scratch file of fixed-size records, which is then
// mapped and sorted in place.

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"sort"
	"unsafe"

	"github.com/golang/glog"
	"github.com/kho/byteblock"
	"github.com/kho/word"
)

const MAGIC_STAGING = "#lira.stage"

// Records are buffered up to this many bytes before they are appended.
const stagingChunk = 1 << 20

type stagingHeader struct {
	Order, Count, Stride int
	WithBackOff          bool
}

// stride is the number of uint32s in one record: the words, the
// probability and, when present, the back-off.
func stagingStride(k int, withBackOff bool) int {
	if withBackOff {
		return k + 2
	}
	return k + 1
}

// stageOrder scans the count entries of the order-k section (the
// section header must have been consumed) into a new scratch file and
// returns its path. The file is removed on error.
func stageOrder(s *arpaScanner, tmp *TempFiles, k, count int, withBackOff bool, progressTo io.Writer) (path string, err error) {
	f, err := tmp.Create(fmt.Sprintf("%d-grams", k))
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioError(cerr, "closing %q", path)
		}
		if err != nil {
			tmp.Remove(path)
			path = ""
		}
	}()

	stride := stagingStride(k, withBackOff)
	var header bytes.Buffer
	if err = gob.NewEncoder(&header).Encode(stagingHeader{k, count, stride, withBackOff}); err != nil {
		return
	}
	bw := byteblock.NewByteBlockWriter(f)
	if err = bw.WriteString(MAGIC_STAGING, 0); err != nil {
		return "", ioError(err, "writing %q", path)
	}
	if err = bw.Write(header.Bytes(), 0); err != nil {
		return "", ioError(err, "writing %q", path)
	}
	if err = bw.NewBlock(4, int64(4*stride*count)); err != nil {
		return "", ioError(err, "writing %q", path)
	}

	p := newProgress(progressTo, fmt.Sprintf("%d-grams", k), count)
	rec := newNgramRecord(k)
	chunk := make([]byte, 0, stagingChunk)
	ignored := 0
	for i := 0; i < count; i++ {
		p.update(i)
		if err = s.readNgram(withBackOff, rec); err != nil {
			return
		}
		if rec.extraBackOff {
			ignored++
		}
		chunk = appendRecord(chunk, rec, withBackOff)
		if len(chunk) >= stagingChunk-4*stride {
			if err = bw.Append(chunk); err != nil {
				return "", ioError(err, "writing %q", path)
			}
			chunk = chunk[:0]
		}
	}
	if len(chunk) > 0 {
		if err = bw.Append(chunk); err != nil {
			return "", ioError(err, "writing %q", path)
		}
	}
	p.done()
	if ignored > 0 {
		glog.Warningf("ignored the back-off weights of %d highest-order %d-grams", ignored, k)
	}
	return path, nil
}

func appendRecord(buf []byte, rec *ngramRecord, withBackOff bool) []byte {
	for _, x := range rec.words {
		buf = binary.NativeEndian.AppendUint32(buf, uint32(x))
	}
	buf = binary.NativeEndian.AppendUint32(buf, math.Float32bits(float32(rec.prob)))
	if withBackOff {
		buf = binary.NativeEndian.AppendUint32(buf, math.Float32bits(float32(rec.bow)))
	}
	return buf
}

// stagedOrder is a mapped staging file. It implements sort.Interface
// ordering records by their word sequence.
type stagedOrder struct {
	stagingHeader
	path string
	file *MappedFile
	data []uint32
}

func openStagedOrder(path string) (*stagedOrder, error) {
	m, err := OpenMappedFile(path, true)
	if err != nil {
		return nil, err
	}
	o := &stagedOrder{path: path, file: m}
	if err := o.parse(m.Bytes()); err != nil {
		m.Close()
		return nil, err
	}
	return o, nil
}

func (o *stagedOrder) parse(raw []byte) error {
	bs := byteblock.NewByteBlockSlicer(raw)
	magic, err := bs.Slice()
	if err != nil {
		return formatError("staging file %q: %v", o.path, err)
	}
	if string(magic) != MAGIC_STAGING {
		return formatError("%q is not a staging file", o.path)
	}
	header, err := bs.Slice()
	if err != nil {
		return formatError("staging file %q: %v", o.path, err)
	}
	if err := gob.NewDecoder(bytes.NewReader(header)).Decode(&o.stagingHeader); err != nil {
		return formatError("staging file %q: %v", o.path, err)
	}
	entries, err := bs.Slice()
	if err != nil {
		return formatError("staging file %q: %v", o.path, err)
	}
	if len(entries) != 4*o.Stride*o.Count {
		return formatError("staging file %q: expect %d bytes of records; got %d", o.path, 4*o.Stride*o.Count, len(entries))
	}
	if len(entries) > 0 {
		o.data = unsafe.Slice((*uint32)(unsafe.Pointer(&entries[0])), len(entries)/4)
	}
	return nil
}

func (o *stagedOrder) Len() int { return o.Count }

func (o *stagedOrder) Less(i, j int) bool {
	a, b := o.data[i*o.Stride:], o.data[j*o.Stride:]
	for n := 0; n < o.Order; n++ {
		if a[n] != b[n] {
			return a[n] < b[n]
		}
	}
	return false
}

func (o *stagedOrder) Swap(i, j int) {
	a, b := o.data[i*o.Stride:(i+1)*o.Stride], o.data[j*o.Stride:(j+1)*o.Stride]
	for n := range a {
		a[n], b[n] = b[n], a[n]
	}
}

// sort orders the records by word sequence. Equal n-grams keep their
// file order.
func (o *stagedOrder) sort() {
	sort.Stable(o)
	if glog.V(1) {
		glog.Infof("sorted %d %d-grams in %s", o.Count, o.Order, o.path)
	}
}

// record copies the i-th record into rec, whose words must have length
// o.Order. The back-off is LOG_ONE when the order has none.
func (o *stagedOrder) record(i int, rec *ngramRecord) {
	r := o.data[i*o.Stride : (i+1)*o.Stride]
	for n := range rec.words {
		rec.words[n] = word.Id(r[n])
	}
	rec.prob = Weight(math.Float32frombits(r[o.Order]))
	if o.WithBackOff {
		rec.bow = Weight(math.Float32frombits(r[o.Order+1]))
	} else {
		rec.bow = LOG_ONE
	}
}

// close unmaps and removes the staging file.
func (o *stagedOrder) close(tmp *TempFiles) error {
	err := o.file.Close()
	o.data = nil
	if rerr := tmp.Remove(o.path); err == nil {
		err = rerr
	}
	return err
}
