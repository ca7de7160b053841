package services

import (
	"context"
	"sync"
)

// AssetLocks serializa, dentro do processo, as unidades atômicas que tocam o mesmo ativo.
// Ativos distintos nunca disputam o mesmo lock. Entre processos a serialização fica a cargo
// do banco (storage.Tx.LockAsset).
type AssetLocks struct {
	mu    sync.Mutex
	locks map[string]*assetLock
}

type assetLock struct {
	ch   chan struct{}
	refs int
}

// NewAssetLocks cria o conjunto de locks.
func NewAssetLocks() *AssetLocks {
	return &AssetLocks{locks: make(map[string]*assetLock)}
}

// Lock aguarda o lock do ativo e devolve a função que o libera.
// Se ctx for cancelado antes, nada fica retido.
func (l *AssetLocks) Lock(ctx context.Context, assetID string) (func(), error) {
	l.mu.Lock()
	al, ok := l.locks[assetID]
	if !ok {
		al = &assetLock{ch: make(chan struct{}, 1)}
		l.locks[assetID] = al
	}
	al.refs++
	l.mu.Unlock()

	select {
	case al.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(assetID, al)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-al.ch
			l.release(assetID, al)
		})
	}, nil
}

func (l *AssetLocks) release(assetID string, al *assetLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	al.refs--
	if al.refs == 0 {
		delete(l.locks, assetID)
	}
}

// held reporta quantos chamadores seguram ou aguardam o lock do ativo.
func (l *AssetLocks) held(assetID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if al, ok := l.locks[assetID]; ok {
		return al.refs
	}
	return 0
}
