// Package codec 提供存储记录的序列化器。
//
// 状态记录通过字节级比较实现条件写（CAS），因此序列化必须是确定性的：
// 同一记录编码两次得到完全相同的字节序列。JSON 与 MessagePack 对
// 固定结构体都满足这一点。
package codec

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/fuse/xerrors"
)

// ErrUnsupportedCodec 不支持的序列化器类型
var ErrUnsupportedCodec = xerrors.New("codec: unsupported codec type")

// Codec 定义序列化接口
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

// JSONCodec JSON 序列化器
type JSONCodec struct{}

func (JSONCodec) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

// MessagePackCodec MessagePack 序列化器
// 比 JSON 体积更小，适合高频读写的状态记录
type MessagePackCodec struct{}

func (MessagePackCodec) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (MessagePackCodec) Unmarshal(data []byte, dest any) error {
	return msgpack.Unmarshal(data, dest)
}

// New 创建序列化器
//
// 支持的类型:
//   - "json"（默认）: 标准库 JSON，便于人工排查存储内容
//   - "msgpack": MessagePack 二进制编码
func New(codecType string) (Codec, error) {
	switch codecType {
	case "json", "":
		return JSONCodec{}, nil
	case "msgpack":
		return MessagePackCodec{}, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
