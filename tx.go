package blobstore

// NopTx is the transaction handle for backends without native transactional
// semantics. Commit, Rollback and Close do nothing, so callers can drive any
// backend through the same begin/commit/close sequence.
type NopTx struct{}

func (NopTx) Commit() error   { return nil }
func (NopTx) Rollback() error { return nil }
func (NopTx) Close() error    { return nil }

var _ Tx = NopTx{}
