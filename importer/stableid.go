package importer

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/gamma-omg/servicelog-mcp/records"
)

// attachmentDataPrefix bounds how much of the payload feeds an attachment id.
const attachmentDataPrefix = 64

// StableID derives a deterministic id from identity fields. Fields are trimmed and
// lower-cased before hashing so cosmetic differences do not create new records.
func StableID(kind string, fields ...string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strings.ToLower(strings.TrimSpace(f))
	}

	h := fnv.New64a()
	h.Write([]byte(strings.Join(parts, "|")))
	return kind + "-" + strconv.FormatUint(h.Sum64(), 36)
}

func JobID(j records.Job) string {
	return StableID("job", j.Title, j.Customer, j.MachineModel, records.FormatTime(j.CreatedAt))
}

func DocumentID(d records.Document) string {
	return StableID("document", d.Title, d.Filename, records.FormatTime(d.CreatedAt))
}

func AttachmentID(a records.Attachment) string {
	data := []rune(a.Data)
	if len(data) > attachmentDataPrefix {
		data = data[:attachmentDataPrefix]
	}

	return StableID("attachment", a.JobID, a.Filename, records.FormatTime(a.CreatedAt), string(data))
}
