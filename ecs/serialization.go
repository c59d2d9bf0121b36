package ecs

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	worldStreamMagic   = 0x444c5257 // "WRLD"
	worldStreamVersion = 1
)

// StreamWriter writes little-endian primitives. The first error is kept and
// every later write is a no-op; check Err once at the end.
type StreamWriter struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewStreamWriter creates a writer on top of w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Err returns the first error encountered.
func (s *StreamWriter) Err() error {
	return s.err
}

func (s *StreamWriter) write(p []byte) {
	if s.err != nil {
		return
	}
	if _, err := s.w.Write(p); err != nil {
		s.err = eris.Wrap(err, "write stream")
	}
}

func (s *StreamWriter) WriteUint8(v uint8) {
	s.buf[0] = v
	s.write(s.buf[:1])
}

func (s *StreamWriter) WriteBool(v bool) {
	if v {
		s.WriteUint8(1)
	} else {
		s.WriteUint8(0)
	}
}

func (s *StreamWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(s.buf[:4], v)
	s.write(s.buf[:4])
}

func (s *StreamWriter) WriteInt32(v int32) {
	s.WriteUint32(uint32(v))
}

func (s *StreamWriter) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(s.buf[:8], v)
	s.write(s.buf[:8])
}

func (s *StreamWriter) WriteFloat64(v float64) {
	s.WriteUint64(math.Float64bits(v))
}

// WriteBytes writes a length-prefixed byte slice.
func (s *StreamWriter) WriteBytes(p []byte) {
	s.WriteUint32(uint32(len(p)))
	s.write(p)
}

// WriteString writes a length-prefixed string.
func (s *StreamWriter) WriteString(v string) {
	s.WriteBytes([]byte(v))
}

func (s *StreamWriter) WriteVec3(v mgl64.Vec3) {
	for _, f := range v {
		s.WriteFloat64(f)
	}
}

func (s *StreamWriter) WriteQuat(q mgl64.Quat) {
	s.WriteFloat64(q.W)
	s.WriteVec3(q.V)
}

func (s *StreamWriter) WriteUUID(id uuid.UUID) {
	s.write(id[:])
}

// StreamReader reads what a StreamWriter wrote. Like the writer it keeps
// the first error; reads after an error return zero values.
type StreamReader struct {
	r       io.Reader
	buf     [8]byte
	err     error
	version uint32
}

// NewStreamReader creates a reader on top of r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// Err returns the first error encountered.
func (s *StreamReader) Err() error {
	return s.err
}

// TypeVersion returns the version the component being read was written
// with. Components branch on it to read older layouts.
func (s *StreamReader) TypeVersion() uint32 {
	return s.version
}

func (s *StreamReader) read(p []byte) bool {
	if s.err != nil {
		return false
	}
	if _, err := io.ReadFull(s.r, p); err != nil {
		s.err = eris.Wrap(err, "read stream")
		return false
	}
	return true
}

func (s *StreamReader) ReadUint8() uint8 {
	if !s.read(s.buf[:1]) {
		return 0
	}
	return s.buf[0]
}

func (s *StreamReader) ReadBool() bool {
	return s.ReadUint8() != 0
}

func (s *StreamReader) ReadUint32() uint32 {
	if !s.read(s.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(s.buf[:4])
}

func (s *StreamReader) ReadInt32() int32 {
	return int32(s.ReadUint32())
}

func (s *StreamReader) ReadUint64() uint64 {
	if !s.read(s.buf[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(s.buf[:8])
}

func (s *StreamReader) ReadFloat64() float64 {
	return math.Float64frombits(s.ReadUint64())
}

// maxStreamChunk guards against corrupt length prefixes.
const maxStreamChunk = 64 << 20

func (s *StreamReader) ReadBytes() []byte {
	n := s.ReadUint32()
	if s.err != nil {
		return nil
	}
	if n > maxStreamChunk {
		s.err = eris.Errorf("stream chunk of %d bytes exceeds limit", n)
		return nil
	}
	p := make([]byte, n)
	if !s.read(p) {
		return nil
	}
	return p
}

func (s *StreamReader) ReadString() string {
	return string(s.ReadBytes())
}

func (s *StreamReader) ReadVec3() mgl64.Vec3 {
	return mgl64.Vec3{s.ReadFloat64(), s.ReadFloat64(), s.ReadFloat64()}
}

func (s *StreamReader) ReadQuat() mgl64.Quat {
	w := s.ReadFloat64()
	return mgl64.Quat{W: w, V: s.ReadVec3()}
}

func (s *StreamReader) ReadUUID() uuid.UUID {
	var id uuid.UUID
	s.read(id[:])
	return id
}

// WriteObjects writes the given root objects, their descendants and all
// serializable components attached to them. With no roots, every root
// object of the world is written.
func (w *World) WriteObjects(out io.Writer, roots ...GameObjectHandle) error {
	var objects []*GameObject
	var collect func(o *GameObject)
	collect = func(o *GameObject) {
		objects = append(objects, o)
		for child := range o.Children() {
			collect(child)
		}
	}
	if len(roots) == 0 {
		for o := range w.RootObjects() {
			collect(o)
		}
	} else {
		for _, h := range roots {
			if o := w.object(h); o != nil {
				collect(o)
			}
		}
	}

	indices := make(map[GameObjectHandle]int32, len(objects))
	for i, o := range objects {
		indices[o.handle] = int32(i)
	}

	s := NewStreamWriter(out)
	s.WriteUint32(worldStreamMagic)
	s.WriteUint32(worldStreamVersion)

	s.WriteUint32(uint32(len(objects)))
	for _, o := range objects {
		parentIndex, ok := indices[o.parent]
		if !ok {
			parentIndex = -1
		}
		s.WriteUUID(o.persistentId)
		s.WriteString(o.name)
		s.WriteString(o.GlobalKey())
		s.WriteInt32(parentIndex)
		s.WriteVec3(o.data.local.Position)
		s.WriteQuat(o.data.local.Rotation)
		s.WriteVec3(o.data.local.Scale)
		s.WriteBool(o.ActiveFlag())
		s.WriteBool(o.IsDynamic())
	}

	type record struct {
		owner int32
		c     Component
	}
	var payload bytes.Buffer
	var managers []ComponentManagerBase
	records := make(map[ComponentManagerBase][]record)
	for i, o := range objects {
		for _, h := range o.components {
			m := w.managerFor(h)
			if m == nil || !m.core().serializable {
				continue
			}
			c, ok := m.TryGetComponentBase(h)
			if !ok {
				continue
			}
			if _, seen := records[m]; !seen {
				managers = append(managers, m)
			}
			records[m] = append(records[m], record{owner: int32(i), c: c})
		}
	}

	s.WriteUint32(uint32(len(managers)))
	for _, m := range managers {
		s.WriteString(m.Name())
		s.WriteUint32(m.TypeVersion())
		s.WriteUint32(uint32(len(records[m])))
		for _, r := range records[m] {
			payload.Reset()
			cw := NewStreamWriter(&payload)
			if err := r.c.(Serializable).SerializeComponent(cw); err != nil {
				return eris.Wrapf(err, "serialize component of %s", m.Name())
			}
			if err := cw.Err(); err != nil {
				return eris.Wrapf(err, "serialize component of %s", m.Name())
			}
			s.WriteInt32(r.owner)
			s.WriteBool(r.c.base().ActiveFlag())
			s.WriteBytes(payload.Bytes())
		}
	}

	return s.Err()
}

// maxStreamObjects bounds the object count of a world stream.
const maxStreamObjects = 1 << 24

// ReadObjects recreates objects written by WriteObjects below parent, or as
// root objects if parent is invalid. Objects get new handles and keep their
// persistent ids. Components of unknown types are skipped. It returns the
// handles of the created root objects. If the stream is malformed, every
// object created so far is deleted again and only the error is returned.
func (w *World) ReadObjects(in io.Reader, parent GameObjectHandle) ([]GameObjectHandle, error) {
	w.checkWriteAccess()

	roots, err := w.readObjects(in, parent)
	if err != nil {
		for _, h := range roots {
			w.DeleteObjectNow(h, false)
		}
		return nil, err
	}
	return roots, nil
}

func (w *World) readObjects(in io.Reader, parent GameObjectHandle) ([]GameObjectHandle, error) {

	s := NewStreamReader(in)
	if magic := s.ReadUint32(); s.Err() == nil && magic != worldStreamMagic {
		return nil, eris.New("not a world stream")
	}
	if version := s.ReadUint32(); s.Err() == nil && version > worldStreamVersion {
		return nil, eris.Errorf("unsupported world stream version %d", version)
	}

	count := s.ReadUint32()
	if err := s.Err(); err != nil {
		return nil, eris.Wrap(err, "read object count")
	}
	if count > maxStreamObjects {
		return nil, eris.Errorf("world stream holds %d objects, limit is %d", count, maxStreamObjects)
	}

	objects := make([]*GameObject, 0, min(count, 1024))
	var roots []GameObjectHandle
	for i := uint32(0); i < count; i++ {
		desc := GameObjectDesc{
			PersistentId: s.ReadUUID(),
			Name:         s.ReadString(),
			GlobalKey:    s.ReadString(),
		}
		parentIndex := s.ReadInt32()
		desc.LocalPosition = s.ReadVec3()
		desc.LocalRotation = s.ReadQuat()
		desc.LocalScaling = s.ReadVec3()
		desc.Inactive = !s.ReadBool()
		desc.Dynamic = s.ReadBool()
		if err := s.Err(); err != nil {
			return roots, eris.Wrapf(err, "read object %d", i)
		}

		switch {
		case parentIndex < 0:
			desc.Parent = parent
		case int(parentIndex) < len(objects):
			desc.Parent = objects[parentIndex].handle
		default:
			return roots, eris.Errorf("object %d refers to unknown parent %d", i, parentIndex)
		}
		if _, exists := w.persistentIds[desc.PersistentId]; exists {
			desc.PersistentId = uuid.Nil
		}
		if _, exists := w.globalKeys[desc.GlobalKey]; exists {
			w.log.Warn("dropping duplicate global key", zap.String("key", desc.GlobalKey))
			desc.GlobalKey = ""
		}

		h, obj := w.CreateObject(desc)
		objects = append(objects, obj)
		if parentIndex < 0 {
			roots = append(roots, h)
		}
	}

	managerCount := s.ReadUint32()
	for i := uint32(0); i < managerCount && s.Err() == nil; i++ {
		name := s.ReadString()
		version := s.ReadUint32()
		componentCount := s.ReadUint32()

		m, known := w.managerByName[name]
		if known && !m.core().serializable {
			known = false
		}
		if !known {
			w.log.Warn("skipping components of unknown type", zap.String("type", name), zap.Uint32("count", componentCount))
		}

		for j := uint32(0); j < componentCount && s.Err() == nil; j++ {
			owner := s.ReadInt32()
			active := s.ReadBool()
			payload := s.ReadBytes()
			if !known || s.Err() != nil {
				continue
			}
			if owner < 0 || int(owner) >= len(objects) {
				return roots, eris.Errorf("component of %s refers to unknown object %d", name, owner)
			}

			_, c := m.createComponentBase(objects[owner])
			c.base().SetActiveFlag(active)

			cr := NewStreamReader(bytes.NewReader(payload))
			cr.version = version
			if err := c.(Serializable).DeserializeComponent(cr); err != nil {
				return roots, eris.Wrapf(err, "deserialize component of %s", name)
			}
			if err := cr.Err(); err != nil {
				return roots, eris.Wrapf(err, "deserialize component of %s", name)
			}
		}
	}

	if err := s.Err(); err != nil {
		return roots, eris.Wrap(err, "read components")
	}
	return roots, nil
}
