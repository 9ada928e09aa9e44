// Package cohort talks to the cohort service that owns participant records and matching history.
package cohort

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/filtering"
	"github.com/spigell/mentor-matcher/internal/matching"
	"github.com/spigell/mentor-matcher/internal/participant"
)

const (
	userAgent         = "spigell/mentor-matcher"
	defaultMaxRetries = 2
	// Max value for participants per page.
	perPage = "100"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	MaxRetries int
}

func New(apiURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  token,
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:     logger,
		UserAgent:  userAgent,
		MaxRetries: defaultMaxRetries,
	}
}

func (c *Client) cohortURL(cohortID string, parts ...string) (string, error) {
	if strings.TrimSpace(cohortID) == "" {
		return "", errors.New("cohort id is required")
	}
	if c.APIURL == "" {
		return "", errors.New("cohort api url is not configured")
	}
	path := c.APIURL + "/cohorts/" + url.PathEscape(cohortID)
	for _, p := range parts {
		path += "/" + p
	}
	return path, nil
}

// FetchRoster loads every mentee and mentor of a cohort. Records that fail to decode are
// reported as warnings on the roster.
func (c *Client) FetchRoster(ctx context.Context, cohortID string) (*participant.Roster, error) {
	endpoint, err := c.cohortURL(cohortID, "participants")
	if err != nil {
		return nil, err
	}

	mentees, err := c.getItems(ctx, endpoint, url.Values{"role": {string(participant.KindMentee)}, "per_page": {perPage}})
	if err != nil {
		return nil, fmt.Errorf("fetch mentees: %w", err)
	}
	mentors, err := c.getItems(ctx, endpoint, url.Values{"role": {string(participant.KindMentor)}, "per_page": {perPage}})
	if err != nil {
		return nil, fmt.Errorf("fetch mentors: %w", err)
	}

	roster := participant.FromRecords(cohortID, mentees, mentors)
	c.logger.Info("cohort roster loaded",
		zap.String("cohort_id", cohortID),
		zap.Int("mentees", roster.Mentees.Len()),
		zap.Int("mentors", roster.Mentors.Len()),
		zap.Int("warnings", len(roster.Warnings)),
	)

	return roster, nil
}

type historyResponse struct {
	Items []filtering.PriorPair `json:"items"`
}

// FetchHistory returns the pairs already proposed in earlier runs of the cohort.
func (c *Client) FetchHistory(ctx context.Context, cohortID string) ([]filtering.PriorPair, error) {
	endpoint, err := c.cohortURL(cohortID, "matching-history")
	if err != nil {
		return nil, err
	}

	var resp historyResponse
	if err := c.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch matching history: %w", err)
	}
	return resp.Items, nil
}

// RecordMatching appends a matching output to the cohort's history.
func (c *Client) RecordMatching(ctx context.Context, out *matching.Output) error {
	if out == nil {
		return errors.New("matching output is required")
	}
	endpoint, err := c.cohortURL(out.CohortID, "matching-history")
	if err != nil {
		return err
	}

	if err := c.postJSON(ctx, endpoint, out); err != nil {
		return fmt.Errorf("record matching %s: %w", out.RunID, err)
	}

	c.logger.Info("matching recorded", zap.String("cohort_id", out.CohortID), zap.String("run_id", out.RunID))
	return nil
}
