package domain

import "time"

// ChangeOp is the kind of mirror write an outbox entry asks for.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// MirrorChange is a pending mirror write recorded in the same transaction as
// the relational change it follows. Car holds the row as committed; for
// deletes only ID and Version are meaningful.
type MirrorChange struct {
	ID        int64
	CarID     int64
	Op        ChangeOp
	Version   int64
	Car       Car
	Attempts  int
	LastError string
	CreatedAt time.Time
}
