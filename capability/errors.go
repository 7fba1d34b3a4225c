package capability

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Sentinel errors identifying a lookup miss. MustObject and MustHandle
// return them wrapped, so match them with errors.Is rather than comparing
// the returned error directly.
var (
	ErrObjectNotFound = errors.New("capability: object not found")
	ErrHandleNotFound = errors.New("capability: handle not found")
)

// MustObject looks up one of p's own objects by id, wrapping
// ErrObjectNotFound with the peer and id for context on miss.
func (p *Peer) MustObject(id uuid.UUID) (*Object, error) {
	o, ok := p.Object(id)
	if !ok {
		return nil, errors.Wrapf(ErrObjectNotFound, "peer %q object %s", p.Name, id)
	}
	return o, nil
}

// MustHandle looks up one of p's own handles by id, wrapping
// ErrHandleNotFound with the peer and id for context on miss.
func (p *Peer) MustHandle(id uuid.UUID) (*Handle, error) {
	h, ok := p.Handle(id)
	if !ok {
		return nil, errors.Wrapf(ErrHandleNotFound, "peer %q handle %s", p.Name, id)
	}
	return h, nil
}
