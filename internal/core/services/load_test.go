package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

func seedMemberFiles(blobs *fakeBlobStore, dates ...string) []string {
	var files []string
	for _, d := range dates {
		rel := "members/" + d + "-members.jsonl.gz"
		blobs.files[rel] = []domain.EnrichedRecord{
			{Fields: domain.Record{"date": d, "user_id": "U1"}, Enriched: domain.Detail{"tz": "UTC"}},
			{Fields: domain.Record{"date": d, "user_id": "U2"}},
			{Fields: domain.Record{"date": d}},
		}
		files = append(files, fakeBlobPrefix+rel)
	}
	return files
}

func newTestLoader(src *fakeSource, blobs *fakeBlobStore, up *fakeUploader) *Loader {
	return NewLoader(src, blobs, up, LoadConfig{RetryStep: time.Nanosecond, ManagerField: "Xf01"})
}

func TestLoader_Load_EventsThenProfiles(t *testing.T) {
	src := newFakeSource()
	src.entities[domain.KindMembers] = []domain.Entity{{ID: "U1", DisplayName: "Ana"}}
	blobs := newFakeBlobStore()
	files := seedMemberFiles(blobs, "2024-01-01", "2024-01-02")
	up := newFakeUploader(blobs)

	res, err := newTestLoader(src, blobs, up).Load(context.Background(), domain.KindMembers, files, LoadOptions{})
	require.NoError(t, err)

	require.Len(t, up.calls, 2)
	assert.Equal(t, domain.RecordTypeEvent, up.calls[0].recordType)
	assert.Equal(t, domain.RecordTypeUser, up.calls[1].recordType)
	assert.Equal(t, files, up.calls[0].files, "one batched call for the whole file list")

	assert.Equal(t, 4, res.Uploaded)
	assert.Zero(t, res.Failed)
	assert.True(t, res.Results.Events.Success)
	assert.Equal(t, 4, res.Results.Events.Count, "records without user_id are skipped")
	assert.True(t, res.Results.Profiles.Success)
	assert.Equal(t, 4, res.Results.Profiles.Count)

	ev := up.calls[0].payloads[0].(domain.Event)
	assert.Equal(t, "Ana", ev.Properties["member_name"])
	assert.Empty(t, blobs.deleted)
}

func TestLoader_Load_ShortCircuitsOnEventFailure(t *testing.T) {
	src := newFakeSource()
	blobs := newFakeBlobStore()
	files := seedMemberFiles(blobs, "2024-01-01", "2024-01-02", "2024-01-03")
	up := newFakeUploader(blobs)
	up.failures[domain.RecordTypeEvent] = -1

	res, err := newTestLoader(src, blobs, up).Load(context.Background(), domain.KindMembers, files, LoadOptions{Cleanup: true})
	require.NoError(t, err)

	assert.Len(t, up.callsFor(domain.RecordTypeEvent), DefaultUploadAttempts)
	assert.Empty(t, up.callsFor(domain.RecordTypeUser))
	assert.Equal(t, 6, res.Failed)
	assert.Zero(t, res.Uploaded)
	assert.False(t, res.Results.Events.Success)
	assert.Contains(t, res.Results.Events.Error, "batch rejected")
	assert.False(t, res.Results.Profiles.Success)
	assert.Empty(t, blobs.deleted, "no cleanup after failure")
}

func TestLoader_Load_RetriesThenSucceeds(t *testing.T) {
	src := newFakeSource()
	blobs := newFakeBlobStore()
	files := seedMemberFiles(blobs, "2024-01-01")
	up := newFakeUploader(blobs)
	up.failures[domain.RecordTypeEvent] = 2

	res, err := newTestLoader(src, blobs, up).Load(context.Background(), domain.KindMembers, files, LoadOptions{})
	require.NoError(t, err)

	assert.Len(t, up.callsFor(domain.RecordTypeEvent), 3)
	assert.True(t, res.Results.Events.Success)
	assert.True(t, res.Results.Profiles.Success)
}

func TestLoader_Load_ProfileFailureSkipsCleanup(t *testing.T) {
	src := newFakeSource()
	blobs := newFakeBlobStore()
	files := seedMemberFiles(blobs, "2024-01-01", "2024-01-02")
	up := newFakeUploader(blobs)
	up.failures[domain.RecordTypeUser] = -1

	res, err := newTestLoader(src, blobs, up).Load(context.Background(), domain.KindMembers, files, LoadOptions{Cleanup: true})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, 2, res.Failed)
	assert.True(t, res.Results.Events.Success)
	assert.False(t, res.Results.Profiles.Success)
	assert.Zero(t, res.Cleaned)
	assert.Empty(t, blobs.deleted)
}

func TestLoader_Load_CleanupAfterBothPhases(t *testing.T) {
	src := newFakeSource()
	blobs := newFakeBlobStore()
	files := seedMemberFiles(blobs, "2024-01-01", "2024-01-02")
	up := newFakeUploader(blobs)

	res, err := newTestLoader(src, blobs, up).Load(context.Background(), domain.KindMembers, files, LoadOptions{Cleanup: true})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Cleaned)
	assert.ElementsMatch(t, files, blobs.deleted)
	assert.Empty(t, blobs.files)
}

func TestLoader_Load_ChannelsUseGroupProfiles(t *testing.T) {
	src := newFakeSource()
	src.entities[domain.KindChannels] = []domain.Entity{{ID: "C1", Name: "general"}}
	blobs := newFakeBlobStore()
	blobs.files["channels/2024-01-01-channels.jsonl.gz"] = []domain.EnrichedRecord{
		{Fields: domain.Record{"date": "2024-01-01", "channel_id": "C1"}},
	}
	up := newFakeUploader(blobs)

	_, err := newTestLoader(src, blobs, up).Load(context.Background(), domain.KindChannels,
		[]string{fakeBlobPrefix + "channels/2024-01-01-channels.jsonl.gz"}, LoadOptions{})
	require.NoError(t, err)

	groups := up.callsFor(domain.RecordTypeGroup)
	require.Len(t, groups, 1)
	assert.Equal(t, "channel_id", groups[0].groupKey)
	gp := groups[0].payloads[0].(domain.GroupProfile)
	assert.Equal(t, "general", gp.Set["$name"])
}

func TestLoader_Load_ListingFailureStillUploads(t *testing.T) {
	src := newFakeSource()
	src.listErr = errors.New("invalid_auth")
	blobs := newFakeBlobStore()
	files := seedMemberFiles(blobs, "2024-01-01")
	up := newFakeUploader(blobs)

	res, err := newTestLoader(src, blobs, up).Load(context.Background(), domain.KindMembers, files, LoadOptions{})
	require.NoError(t, err)
	assert.True(t, res.Results.Profiles.Success)
}

func TestLoader_Load_NoFiles(t *testing.T) {
	blobs := newFakeBlobStore()
	up := newFakeUploader(blobs)

	res, err := newTestLoader(newFakeSource(), blobs, up).Load(context.Background(), domain.KindMembers, nil, LoadOptions{Cleanup: true})
	require.NoError(t, err)
	assert.Empty(t, up.calls)
	assert.Zero(t, res.Uploaded)
	assert.Zero(t, res.Failed)
	assert.True(t, res.Results.Events.Success)
}

func TestLinearBackOff(t *testing.T) {
	b := &linearBackOff{step: 2 * time.Second}

	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
	b.Reset()
	assert.Equal(t, 2*time.Second, b.NextBackOff())
}
