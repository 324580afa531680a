package contract

import (
	"context"
	"io"
)

// ArtifactID: 结果工件标识，由 FileID 加报告扩展名构成（例如 "a/b.txt.json"）。
type ArtifactID string

// Artifact 由来源与扩展名组合工件标识。ext 为空时直接使用 FileID。
func Artifact(id FileID, ext string) ArtifactID {
	if ext == "" {
		return ArtifactID(id)
	}
	return ArtifactID(string(id) + "." + ext)
}

// Reporter: 将分析结果渲染为某种展示形式（文本/JSON/YAML/图表）。
// 外部展示层：只读 Report，不参与分析。
type Reporter interface {
	// Ext 返回工件扩展名（不含点）。
	Ext() string
	Render(ctx context.Context, rep Report, w io.Writer) error
}

// Writer: 将渲染结果持久化到目标介质（文件系统/标准输出）。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 流式写入，按字节透传，不读取/修改内容；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
