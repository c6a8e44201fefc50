package validation

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/labportal/portal/shared/domain"
)

// IsObjectID reports whether s is a canonical (lowercase) 24-character hex ObjectId.
func IsObjectID(s string) bool {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return false
	}
	return oid.Hex() == s
}

// ParseObjectID converts untrusted input into a domain.ObjectID.
func ParseObjectID(s string) (domain.ObjectID, error) {
	if !IsObjectID(s) {
		return "", ErrMalformedID
	}
	return domain.ObjectID(s), nil
}
