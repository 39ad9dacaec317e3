package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the user aggregate. Instances are treated as immutable: any
// mutation produces a new value rather than modifying one in place.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Age       *int      `json:"age" db:"age"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser holds the fields for inserting a user. The ID is a UUIDv7 so that
// primary keys sort by creation time.
type NewUser struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Age       *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPatch is a sparse update for a user. Each field is independently
// unset (leave unchanged), null (clear), or set to a value. Email and Name
// are non-nullable columns, so the null state is rejected by the service.
type UserPatch struct {
	Email Field[string]
	Name  Field[string]
	Age   Field[int]
}

// IsEmpty reports whether no field of the patch would touch storage.
func (p UserPatch) IsEmpty() bool {
	return p.Email.IsUnset() && p.Name.IsUnset() && p.Age.IsUnset()
}
