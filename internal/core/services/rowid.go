package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// rowNamespace scopes row IDs so they never collide with other SHA-1 UUIDs.
var rowNamespace = uuid.MustParse("5b0a7c52-3f7e-4d1a-9a63-0f4e2c8d71b9")

// RowID derives the primary key of an index row from its filename,
// location and text. The same chunk always gets the same ID.
func RowID(filename string, loc domain.Location, text string) string {
	sum := sha256.Sum256([]byte(text))
	key := fmt.Sprintf("%s|%d|%d|%s", filename, loc.Start, loc.End, hex.EncodeToString(sum[:]))
	return uuid.NewSHA1(rowNamespace, []byte(key)).String()
}
