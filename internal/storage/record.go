package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"

	"ksinn/internal/model"
)

const snapshotTimestampLayout = "%Y%m%d%H%M%S"

// SnapshotName formats the display name of a snapshot scored at
// percentCorrect and taken at t.
func SnapshotName(percentCorrect float64, t time.Time) string {
	return fmt.Sprintf("neural-network-%.2f-percent-correctness-%s", percentCorrect, strftime.Format(snapshotTimestampLayout, t))
}

// NewSnapshotRecord stamps a raw network snapshot with an id, versions, a
// score and a name so it can be stored.
func NewSnapshotRecord(snapshot model.NetworkSnapshot, percentCorrect float64, now time.Time) model.NetworkSnapshot {
	snapshot.VersionedRecord = model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
	snapshot.ID = uuid.NewString()
	snapshot.PercentCorrect = percentCorrect
	snapshot.CreatedAt = now.UTC()
	snapshot.Name = SnapshotName(percentCorrect, now)
	return snapshot
}
