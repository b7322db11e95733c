package protocol

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec 负责会话帧的编解码。文本通道用 JSON，二进制通道用 msgpack。
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
	Name() string
}

// JSONCodec JSON 编解码（文本帧）
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string { return "json" }

// MsgpackCodec msgpack 编解码（二进制帧）
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func (MsgpackCodec) Name() string { return "msgpack" }
