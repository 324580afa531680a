package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（文件/目录/STDIN）。
// 约束：
// 1) 按文件维度回调，回调负责关闭 ReadCloser；
// 2) FileID 稳定且去平台差异化；
// 3) 不做解码，仅提供原始字节流；
// 4) 不在内部起并发。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, r io.ReadCloser) error) error
}

// Decoder: 将原始字节按输入编码（raw/hex/base64/binary/letters）转换为符号序列。
// 纯函数语义：不得保留或修改 raw。
type Decoder interface {
	Decode(ctx context.Context, fileID FileID, raw []byte) (Symbols, error)
}
