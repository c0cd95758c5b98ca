package publisher

import (
	"context"
	"io"
)

// OutputWriter はデータを保存先に書き込むためのインターフェースです。
// remoteio.OutputWriter と同じ形なので、GCS / S3 / ローカルを振り分ける Writer をそのまま渡せます。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}
