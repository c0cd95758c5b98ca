// Package taskrunner は同時実行数に上限を設けて複数のタスクを実行するユーティリティです。
package taskrunner

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Result は1件分の実行結果です。Err が nil なら Value が有効です。
type Result[R any] struct {
	Value R
	Err   error
}

// OK は成功したかどうかを返します。
func (r Result[R]) OK() bool {
	return r.Err == nil
}

// Worker は1件のアイテムを処理する関数です。
type Worker[T, R any] func(ctx context.Context, item T) (R, error)

// Run は items を最大 maxConcurrent 件まで同時に処理し、入力と同じ順序で結果を返します。
//
// 共有カーソルから未処理のインデックスを1つずつ取り出すワーカーを min(maxConcurrent, len(items)) 個起動します。
// 各アイテムはちょうど1回処理され、あるアイテムの失敗が他のアイテムを中断することはありません。
// ワーカーの panic はそのアイテムの失敗として記録されます。
// ctx がキャンセルされた後に取り出されたアイテムは ctx.Err() で失敗します。
func Run[T, R any](ctx context.Context, items []T, worker Worker[T, R], maxConcurrent int) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	workers := min(maxConcurrent, len(items))

	var cursor atomic.Int64
	// ワーカーはエラーを返さないので、errgroup はゴルーチンの待ち合わせにだけ使う
	var eg errgroup.Group
	for range workers {
		eg.Go(func() error {
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				if err := ctx.Err(); err != nil {
					results[i] = Result[R]{Err: err}
					continue
				}
				results[i] = runOne(ctx, items[i], worker)
			}
		})
	}
	_ = eg.Wait()
	return results
}

func runOne[T, R any](ctx context.Context, item T, worker Worker[T, R]) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()
	v, err := worker(ctx, item)
	return Result[R]{Value: v, Err: err}
}

// Succeeded は成功した結果のインデックスを返します。
func Succeeded[R any](results []Result[R]) []int {
	idx := make([]int, 0, len(results))
	for i, r := range results {
		if r.OK() {
			idx = append(idx, i)
		}
	}
	return idx
}
