package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	googleopt "google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// metadataBatchSize is the maximum number of ids the Data API accepts per
// list call.
const metadataBatchSize = 50

// VideoMetadata contains YouTube video information
type VideoMetadata struct {
	YoutubeID   string    `json:"youtube_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ChannelID   string    `json:"channel_id"`
	Duration    int64     `json:"duration_seconds"`
	ViewCount   int64     `json:"view_count"`
	LikeCount   int64     `json:"like_count"`
	PublishedAt time.Time `json:"published_at"`
}

// ChannelMetadata contains YouTube channel information
type ChannelMetadata struct {
	YoutubeID       string `json:"youtube_id"`
	Title           string `json:"title"`
	SubscriberCount int64  `json:"subscriber_count"`
	VideoCount      int64  `json:"video_count"`
	ViewCount       int64  `json:"view_count"`
}

// MetadataService fetches video and channel metadata. It is an interface so
// the importer can be tested without the Data API.
type MetadataService interface {
	Videos(ctx context.Context, ids []string) ([]VideoMetadata, error)
	Channels(ctx context.Context, ids []string) ([]ChannelMetadata, error)
}

// YouTube talks to the YouTube Data API v3.
type YouTube struct {
	apiKey  string
	svc     *youtube.Service
	verbose bool
}

// NewYouTube creates a metadata fetcher. The service itself is constructed
// on first use.
func NewYouTube(apiKey string, verbose bool) *YouTube {
	return &YouTube{apiKey: apiKey, verbose: verbose}
}

func (yt *YouTube) ensureService(ctx context.Context) error {
	if yt.svc != nil {
		return nil
	}
	if yt.apiKey == "" {
		return fmt.Errorf("YouTube API key is required - set the YOUTUBE_API_KEY environment variable")
	}
	svc, err := youtube.NewService(ctx, googleopt.WithAPIKey(yt.apiKey))
	if err != nil {
		return fmt.Errorf("creating youtube service: %w", err)
	}
	yt.svc = svc
	return nil
}

// Videos fetches metadata for the given video ids, batching up to 50 per
// request. Unknown ids are silently absent from the result.
func (yt *YouTube) Videos(ctx context.Context, ids []string) ([]VideoMetadata, error) {
	if err := yt.ensureService(ctx); err != nil {
		return nil, err
	}

	var out []VideoMetadata
	for _, batch := range chunk(ids, metadataBatchSize) {
		resp, err := yt.svc.Videos.
			List([]string{"snippet", "contentDetails", "statistics"}).
			Id(batch...).
			MaxResults(metadataBatchSize).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("listing videos: %w", err)
		}
		for _, item := range resp.Items {
			md := VideoMetadata{
				YoutubeID: item.Id,
			}
			if item.Snippet != nil {
				md.Title = item.Snippet.Title
				md.Description = item.Snippet.Description
				md.ChannelID = item.Snippet.ChannelId
				if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
					md.PublishedAt = ts
				}
			}
			if item.ContentDetails != nil {
				md.Duration = int64(ParseISODuration(item.ContentDetails.Duration).Seconds())
			}
			if item.Statistics != nil {
				md.ViewCount = int64(item.Statistics.ViewCount)
				md.LikeCount = int64(item.Statistics.LikeCount)
			}
			out = append(out, md)
		}
	}

	if yt.verbose {
		fmt.Printf("Fetched metadata for %d of %d videos\n", len(out), len(ids))
	}
	return out, nil
}

// Channels fetches metadata for the given channel ids, batched like Videos.
func (yt *YouTube) Channels(ctx context.Context, ids []string) ([]ChannelMetadata, error) {
	if err := yt.ensureService(ctx); err != nil {
		return nil, err
	}

	var out []ChannelMetadata
	for _, batch := range chunk(ids, metadataBatchSize) {
		resp, err := yt.svc.Channels.
			List([]string{"snippet", "statistics"}).
			Id(batch...).
			MaxResults(metadataBatchSize).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("listing channels: %w", err)
		}
		for _, item := range resp.Items {
			md := ChannelMetadata{
				YoutubeID: item.Id,
			}
			if item.Snippet != nil {
				md.Title = item.Snippet.Title
			}
			if item.Statistics != nil {
				md.SubscriberCount = int64(item.Statistics.SubscriberCount)
				md.VideoCount = int64(item.Statistics.VideoCount)
				md.ViewCount = int64(item.Statistics.ViewCount)
			}
			out = append(out, md)
		}
	}
	return out, nil
}

// chunk splits ids into batches of at most size elements.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// ParseISODuration parses the ISO-8601 durations the Data API returns
// (e.g. "PT1H2M3S"). Malformed input yields zero.
func ParseISODuration(s string) time.Duration {
	s = strings.TrimPrefix(s, "P")
	var d time.Duration
	var num int64
	inTime := false
	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
			num = 0
		case r >= '0' && r <= '9':
			num = num*10 + int64(r-'0')
		case r == 'D':
			d += time.Duration(num) * 24 * time.Hour
			num = 0
		case r == 'H' && inTime:
			d += time.Duration(num) * time.Hour
			num = 0
		case r == 'M' && inTime:
			d += time.Duration(num) * time.Minute
			num = 0
		case r == 'S' && inTime:
			d += time.Duration(num) * time.Second
			num = 0
		default:
			return 0
		}
	}
	return d
}
