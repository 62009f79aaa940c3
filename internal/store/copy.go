package store

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// ChannelSource implements pgx.CopyFromSource by reading disputes from a
// channel. It gives natural backpressure between the file reader and the
// COPY writer. Every row is tagged with the load batch and file.
type ChannelSource struct {
	ch      <-chan *model.Dispute
	batchID uuid.UUID
	fileID  int64
	current *model.Dispute
}

// NewChannelSource creates a CopyFromSource backed by ch.
func NewChannelSource(ch <-chan *model.Dispute, batchID uuid.UUID, fileID int64) *ChannelSource {
	return &ChannelSource{ch: ch, batchID: batchID, fileID: fileID}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *ChannelSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Values returns the current row's values in CopyColumns order.
func (s *ChannelSource) Values() ([]any, error) {
	return append(s.current.CopyValues(), s.batchID, s.fileID), nil
}

func (s *ChannelSource) Err() error {
	return nil
}

// CopyColumns is the idr_disputes column list used by COPY.
func CopyColumns() []string {
	return append(model.DisputeColumns(), "load_batch_id", "file_id")
}

var _ pgx.CopyFromSource = (*ChannelSource)(nil)
