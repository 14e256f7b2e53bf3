package models

import "github.com/google/uuid"

// assignID gives a new row an id on the client so inserts behave the same on
// every dialect.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
