package services

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stoicPathAPI/internal/track"
)

// TrackService reads the shared track/challenge catalog and applies
// backstage edits. Edits only reach users through future snapshots.
type TrackService struct {
	db *firestore.Client
}

func NewTrackService(db *firestore.Client) *TrackService {
	return &TrackService{db: db}
}

func (s *TrackService) ListTracks(ctx context.Context) ([]track.Track, error) {
	iter := s.db.Collection(tracksCollection).Documents(ctx)
	defer iter.Stop()

	var tracks []track.Track
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list tracks: %w", err)
		}
		var t track.Track
		if err := doc.DataTo(&t); err != nil {
			return nil, fmt.Errorf("failed to decode track %s: %w", doc.Ref.ID, err)
		}
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Order < tracks[j].Order })
	return tracks, nil
}

// GetTrackBySlug resolves the track behind a /tracks/{slug} page, with its
// challenge templates attached.
func (s *TrackService) GetTrackBySlug(ctx context.Context, slug string) (*track.Track, []track.ChallengeTemplate, error) {
	iter := s.db.Collection(tracksCollection).Where("slug", "==", slug).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up track %s: %w", slug, err)
	}

	var t track.Track
	if err := doc.DataTo(&t); err != nil {
		return nil, nil, fmt.Errorf("failed to decode track %s: %w", slug, err)
	}

	templates, err := s.listTemplates(ctx, t.DisplayName)
	if err != nil {
		return nil, nil, err
	}
	return &t, templates, nil
}

func (s *TrackService) listTemplates(ctx context.Context, trackName string) ([]track.ChallengeTemplate, error) {
	iter := s.db.Collection(challengesCollection).Where("track", "==", trackName).Documents(ctx)
	defer iter.Stop()

	var templates []track.ChallengeTemplate
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list challenges for %s: %w", trackName, err)
		}
		var tpl track.ChallengeTemplate
		if err := doc.DataTo(&tpl); err != nil {
			return nil, fmt.Errorf("failed to decode challenge %s: %w", doc.Ref.ID, err)
		}
		templates = append(templates, tpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Day < templates[j].Day })
	return templates, nil
}

// UpdateWeeks replaces a track's week names.
func (s *TrackService) UpdateWeeks(ctx context.Context, trackID string, weeks []track.Week) error {
	_, err := s.db.Collection(tracksCollection).Doc(trackID).Update(ctx, []firestore.Update{
		{Path: "weeks", Value: weeks},
		{Path: "numberOfWeeks", Value: len(weeks)},
	})
	if status.Code(err) == codes.NotFound {
		return ErrTrackNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update weeks for %s: %w", trackID, err)
	}
	return nil
}

// UpsertChallenge writes one day of template content, keyed by track name
// and day so repeated edits land on the same document.
func (s *TrackService) UpsertChallenge(ctx context.Context, tpl track.ChallengeTemplate) error {
	if tpl.Day < 1 || tpl.Day > 30 {
		return fmt.Errorf("day %d out of range", tpl.Day)
	}
	docID := track.TemplateDocID(tpl.Track, tpl.Day)
	if _, err := s.db.Collection(challengesCollection).Doc(docID).Set(ctx, tpl); err != nil {
		return fmt.Errorf("failed to save challenge %s: %w", docID, err)
	}
	return nil
}
