package booking

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
