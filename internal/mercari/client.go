package mercari

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/simple-mercari/listing/internal/listing"
)

const defaultImageContentType = "application/octet-stream"

type ClientOpts struct {
	BaseURL string
	// Origin is sent as the Origin header, as a browser would on a
	// cross-origin request. Empty means no header.
	Origin string
}

// Client talks to the simple-mercari items API.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// Item is one listed item as returned by the API.
type Item struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Image    string `json:"image,omitempty"`
}

type ItemsResponse struct {
	Items []Item `json:"items"`
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: opts.BaseURL}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")
	if opts.Origin != "" {
		c.httpClient.SetHeader("Origin", opts.Origin)
	}
	return &c
}

// BaseURL returns the server origin the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateItem posts a listing as multipart/form-data with the parts name,
// category and image, and decodes the JSON answer. Any JSON value is
// accepted, not only objects.
func (c *Client) CreateItem(ctx context.Context, upload listing.Upload) (any, error) {
	contentType := upload.Image.ContentType
	if contentType == "" {
		contentType = defaultImageContentType
	}

	res, err := handleError(c.httpClient.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			listing.FieldName:     upload.Name,
			listing.FieldCategory: upload.Category,
		}).
		SetMultipartField(listing.FieldImage, upload.Image.Filename, contentType, bytes.NewReader(upload.Image.Data)).
		Post("/items"))
	if err != nil {
		return nil, err
	}

	var data any
	if err := json.Unmarshal(res.Body(), &data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return data, nil
}

// ListItems fetches every item.
func (c *Client) ListItems(ctx context.Context) (ItemsResponse, error) {
	result := ItemsResponse{}
	_, err := handleError(c.req(ctx, &result).Get("/items"))
	return result, err
}

// GetItem fetches one item by its numeric id.
func (c *Client) GetItem(ctx context.Context, id string) (Item, error) {
	result := Item{}
	_, err := handleError(c.req(ctx, &result).
		SetPathParams(map[string]string{
			"itemId": id,
		}).
		Get("/items/{itemId}"))
	return result, err
}

// SearchItems returns items whose name contains keyword.
func (c *Client) SearchItems(ctx context.Context, keyword string) (ItemsResponse, error) {
	result := ItemsResponse{}
	_, err := handleError(c.req(ctx, &result).
		SetQueryParam("keyword", keyword).
		Get("/search"))
	return result, err
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx)

	if result != nil {
		request.SetResult(result)
	}

	return request
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}

var _ listing.Poster = (*Client)(nil)
