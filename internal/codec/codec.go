// Package codec provides encode/decode interfaces for boxed-value
// serialization, and the Envelope wire form.
package codec

// Codec encodes and decodes values for storage.
type Codec interface {
	// Marshal serializes v into bytes.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes data into v (must be a pointer).
	Unmarshal(data []byte, v any) error
	// Name returns the codec identifier used for diagnostics.
	Name() string
}

// Envelope is the stored form of a boxed value: the registered wire
// name of the payload type plus the codec-encoded payload bytes. It is
// what every store tier actually holds.
type Envelope struct {
	Type string `json:"type" msgpack:"type"`
	Data []byte `json:"data" msgpack:"data"`
}

// Clone returns a copy whose Data does not alias e's backing array.
func (e Envelope) Clone() Envelope {
	if e.Data == nil {
		return e
	}
	data := make([]byte, len(e.Data))
	copy(data, e.Data)
	return Envelope{Type: e.Type, Data: data}
}
