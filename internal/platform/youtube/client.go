package youtube

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/franz/faceless-shorts/internal/platform"
	"github.com/franz/faceless-shorts/internal/tracker"
	"github.com/franz/faceless-shorts/internal/util"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Credentials for the offline refresh-token flow. Obtaining the refresh
// token is done once, outside this tool.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Config holds client configuration
type Config struct {
	Credentials Credentials

	// HTTPClient overrides the OAuth client, used by tests
	HTTPClient *http.Client
	// Endpoint overrides the API base URL, used by tests
	Endpoint string
}

// Client talks to the YouTube Data API v3. It implements
// platform.Uploader and tracker.StatsFetcher.
type Client struct {
	svc *youtube.Service
}

var (
	_ platform.Uploader    = (*Client)(nil)
	_ tracker.StatsFetcher = (*Client)(nil)
)

// New creates an authenticated client
func New(ctx context.Context, cfg *Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		c := cfg.Credentials
		if c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "" {
			return nil, fmt.Errorf("youtube: %w", util.ErrMissingCredentials)
		}
		conf := &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
		}
		token := &oauth2.Token{
			RefreshToken: c.RefreshToken,
			Expiry:       time.Now().Add(-time.Hour), // force refresh
		}
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: conf.TokenSource(ctx, token)},
			Timeout:   10 * time.Minute,
		}
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Upload publishes a video and returns its platform id
func (c *Client) Upload(ctx context.Context, req platform.UploadRequest) (string, error) {
	f, err := os.Open(req.VideoPath)
	if err != nil {
		return "", fmt.Errorf("%w: open video: %v", platform.ErrUpload, err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		util.InfoLog("Uploading %q (%.1f MB)", req.Title, float64(fi.Size())/1024/1024)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  req.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: req.Privacy,
		},
	}

	uploaded, err := c.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: %v", platform.ErrUpload, err)
	}
	if uploaded.Id == "" {
		return "", fmt.Errorf("%w: response carried no video id", platform.ErrUpload)
	}
	return uploaded.Id, nil
}

// SetThumbnail attaches a custom thumbnail to an uploaded video
func (c *Client) SetThumbnail(ctx context.Context, videoID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}
	defer f.Close()

	if _, err := c.svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do(); err != nil {
		return fmt.Errorf("set thumbnail for %s: %w", videoID, err)
	}
	return nil
}

// FetchStats returns the public counters of a video
func (c *Client) FetchStats(ctx context.Context, videoID string) (tracker.Stats, error) {
	resp, err := c.svc.Videos.List([]string{"statistics"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return tracker.Stats{}, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return tracker.Stats{}, fmt.Errorf("video %s: %w", videoID, util.ErrNotFound)
	}

	s := resp.Items[0].Statistics
	return tracker.Stats{
		Views:    int64(s.ViewCount),
		Likes:    int64(s.LikeCount),
		Comments: int64(s.CommentCount),
	}, nil
}
