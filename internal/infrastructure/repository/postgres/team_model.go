package postgres

import "time"

type teamTableModel struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type teamInsertModel struct {
	Name string `db:"name"`
}
