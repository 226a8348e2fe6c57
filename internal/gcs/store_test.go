package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteKey(t *testing.T) {
	assert.Equal(t, "processed/resolved/1001.txt", NoteKey(FolderResolved, "1001"))
	assert.Equal(t, "processed/unresolved/1002.txt", NoteKey(FolderUnresolved, "1002"))
}

func TestContentTypeForKey(t *testing.T) {
	assert.Equal(t, "text/csv", contentTypeForKey("preprocessed.CSV"))
	assert.Equal(t, "text/plain", contentTypeForKey("processed/resolved/1001.txt"))
	assert.Equal(t, "application/json", contentTypeForKey("stats.json"))
	assert.Empty(t, contentTypeForKey("archive.bin"))
}
