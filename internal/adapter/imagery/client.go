// Package imagery implements domain.RasterCatalog against the remote
// earth-observation gateway's HTTP API, with an LRU cache decorator.
package imagery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

const landsatDataset = "landsat-c2l2"

// Client implements domain.RasterCatalog using the gateway's REST API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a gateway client. baseURL has no trailing slash.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// Scenes fetches Landsat scenes clipped and resampled to the given grid.
func (c *Client) Scenes(ctx context.Context, grid domain.Grid, startDate, endDate string, maxCloud int) ([]domain.Scene, error) {
	params := url.Values{
		"dataset":   {landsatDataset},
		"bbox":      {grid.Region.BBox()},
		"start":     {startDate},
		"end":       {endDate},
		"max_cloud": {strconv.Itoa(maxCloud)},
		"width":     {strconv.Itoa(grid.Width)},
		"height":    {strconv.Itoa(grid.Height)},
	}

	var resp scenesResponse
	if err := c.doRequest(ctx, c.baseURL+"/v1/scenes?"+params.Encode(), &resp); err != nil {
		return nil, &domain.ExternalServiceError{Service: "imagery-gateway", Err: err}
	}

	scenes := make([]domain.Scene, 0, len(resp.Scenes))
	for _, s := range resp.Scenes {
		scene, err := s.toDomain(grid)
		if err != nil {
			return nil, &domain.ExternalServiceError{Service: "imagery-gateway", Err: err}
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

// PopulationDensity fetches the population-density raster on the grid.
func (c *Client) PopulationDensity(ctx context.Context, grid domain.Grid) (domain.Raster, error) {
	params := url.Values{
		"bbox":   {grid.Region.BBox()},
		"width":  {strconv.Itoa(grid.Width)},
		"height": {strconv.Itoa(grid.Height)},
	}

	var resp rasterResponse
	if err := c.doRequest(ctx, c.baseURL+"/v1/rasters/population-density?"+params.Encode(), &resp); err != nil {
		return domain.Raster{}, &domain.ExternalServiceError{Service: "imagery-gateway", Err: err}
	}

	if len(resp.Values) != grid.Cells() {
		return domain.Raster{}, &domain.ExternalServiceError{
			Service: "imagery-gateway",
			Err:     fmt.Errorf("raster has %d values for %d-cell grid", len(resp.Values), grid.Cells()),
		}
	}
	return domain.Raster{Grid: grid, Values: denull(resp.Values)}, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Gateway API response types. Band arrays carry null for nodata cells.

type scenesResponse struct {
	Scenes []sceneJSON `json:"scenes"`
}

type sceneJSON struct {
	ID         string    `json:"id"`
	Acquired   time.Time `json:"acquired"`
	CloudCover float64   `json:"cloud_cover"`
	Grid       gridJSON  `json:"grid"`
	Bands      bandsJSON `json:"bands"`
}

type gridJSON struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type bandsJSON struct {
	SRB4  []*float64 `json:"sr_b4"`
	SRB5  []*float64 `json:"sr_b5"`
	STB10 []*float64 `json:"st_b10"`
}

type rasterResponse struct {
	Grid   gridJSON   `json:"grid"`
	Values []*float64 `json:"values"`
}

func (s sceneJSON) toDomain(grid domain.Grid) (domain.Scene, error) {
	if s.Grid.Width != grid.Width || s.Grid.Height != grid.Height {
		return domain.Scene{}, fmt.Errorf("scene %s: grid %dx%d does not match requested %dx%d",
			s.ID, s.Grid.Width, s.Grid.Height, grid.Width, grid.Height)
	}
	cells := grid.Cells()
	for name, band := range map[string][]*float64{"sr_b4": s.Bands.SRB4, "sr_b5": s.Bands.SRB5, "st_b10": s.Bands.STB10} {
		if len(band) != cells {
			return domain.Scene{}, fmt.Errorf("scene %s: band %s has %d values for %d-cell grid", s.ID, name, len(band), cells)
		}
	}
	return domain.Scene{
		ID:         s.ID,
		Acquired:   s.Acquired,
		CloudCover: s.CloudCover,
		Grid:       grid,
		Red:        denull(s.Bands.SRB4),
		NIR:        denull(s.Bands.SRB5),
		Thermal:    denull(s.Bands.STB10),
	}, nil
}

// denull converts JSON nulls (nodata) to NaN.
func denull(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}
