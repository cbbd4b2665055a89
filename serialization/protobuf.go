// Package serialization provides Protocol Buffers payload helpers. The
// transport moves opaque bytes; these helpers sit above it, turning typed
// messages into payloads and back
package serialization

import (
	"google.golang.org/protobuf/proto"

	"github.com/kode4food/tinydds/dds"
)

// Serialize marshals a message into a payload suitable for a DataWriter
func Serialize(msg proto.Message) ([]byte, error) {
	return proto.Marshal(msg)
}

// Deserialize unmarshals a payload into the provided message
func Deserialize(data []byte, msg proto.Message) error {
	return proto.Unmarshal(data, msg)
}

// TypeName returns the full protobuf type name, usable as a Topic's type
// name
func TypeName(msg proto.Message) string {
	return string(msg.ProtoReflect().Descriptor().FullName())
}

// Publish marshals a message and writes it through the given DataWriter
func Publish(w dds.DataWriter, msg proto.Message) bool {
	data, err := Serialize(msg)
	if err != nil {
		return false
	}
	return w.Write(data)
}

// Take reads the next available payload from the given DataReader into buf
// and unmarshals it into msg. It reports false when no payload is available
// or the payload does not parse
func Take(r dds.DataReader, buf []byte, msg proto.Message) bool {
	var info dds.SampleInfo
	n := r.Take(buf, &info)
	if n < 0 {
		return false
	}
	return Deserialize(buf[:n], msg) == nil
}
