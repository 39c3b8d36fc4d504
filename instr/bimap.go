package instr

import "github.com/ansel1/merry"

// BiMap is a bidirectional mapping between a human-facing token and the
// wire-level token sent to or received from a device.  Both directions are
// explicitly partial: unknown keys error instead of silently mapping to a
// zero value.  BiMaps are built once at driver definition time and are
// safe for concurrent readers.
type BiMap struct {
	fwd map[interface{}]string
	rev map[string]interface{}
}

// NewBiMap builds a BiMap from a human -> wire mapping.  Wire tokens must
// be unique or the reverse lookup is ill-defined; NewBiMap panics in that
// case since tables are static and this is a driver authoring bug.
func NewBiMap(humanToWire map[interface{}]string) *BiMap {
	b := &BiMap{
		fwd: make(map[interface{}]string, len(humanToWire)),
		rev: make(map[string]interface{}, len(humanToWire)),
	}
	for k, v := range humanToWire {
		if _, ok := b.rev[v]; ok {
			panic("instr: duplicate wire token " + v + " in BiMap")
		}
		b.fwd[k] = v
		b.rev[v] = k
	}
	return b
}

// ToWire translates a human token to its wire token
func (b *BiMap) ToWire(human interface{}) (string, error) {
	w, ok := b.fwd[human]
	if !ok {
		return "", merry.Appendf(ErrInvalidValue.Here(), "%v has no wire encoding", human)
	}
	return w, nil
}

// FromWire translates a wire token back to its human token
func (b *BiMap) FromWire(wire string) (interface{}, error) {
	h, ok := b.rev[wire]
	if !ok {
		return nil, merry.Appendf(ErrReplyFormat.Here(), "wire token %q has no decoding", wire)
	}
	return h, nil
}

// Humans returns the human-side keys of the map, in no particular order
func (b *BiMap) Humans() []interface{} {
	out := make([]interface{}, 0, len(b.fwd))
	for k := range b.fwd {
		out = append(out, k)
	}
	return out
}

// OnOff returns the conventional SCPI boolean encoding, true <=> "1"
func OnOff() *BiMap {
	return NewBiMap(map[interface{}]string{true: "1", false: "0"})
}
