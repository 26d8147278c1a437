// Package chart turns report chart descriptors into a single composite
// PNG. Rasterization is delegated to a QuickChart-compatible HTTP
// service; this package builds the chart configs, fetches one image per
// descriptor and lays them out side by side.
package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"time"

	"github.com/valyala/fasthttp"

	"statsink/internal/stats"
)

// ErrUnsupportedChartType fails a render call before any network I/O.
var ErrUnsupportedChartType = errors.New("unsupported chart type")

// QuickChart renders charts through a QuickChart-compatible endpoint.
type QuickChart struct {
	url     string
	client  *fasthttp.Client
	timeout time.Duration

	width  int
	height int
}

// NewQuickChart returns a renderer posting to url, with each HTTP call
// bounded by timeout.
func NewQuickChart(url string, timeout time.Duration) *QuickChart {
	return &QuickChart{
		url:     url,
		client:  &fasthttp.Client{},
		timeout: timeout,
		width:   500,
		height:  350,
	}
}

// Render produces one PNG with the given charts side by side. An
// unrecognized chart type anywhere in the sequence fails the whole call
// without contacting the render service.
func (q *QuickChart) Render(charts []stats.Chart) ([]byte, error) {
	if len(charts) == 0 {
		return nil, errors.New("no charts to render")
	}

	configs := make([][]byte, 0, len(charts))
	for _, c := range charts {
		cfg, err := q.requestBody(c)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	images := make([]image.Image, 0, len(configs))
	for i, cfg := range configs {
		data, err := q.fetch(cfg)
		if err != nil {
			return nil, fmt.Errorf("render chart %q: %w", charts[i].Title, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode chart %q: %w", charts[i].Title, err)
		}
		images = append(images, img)
	}

	return compose(images)
}

// requestBody builds the QuickChart POST body for one descriptor.
func (q *QuickChart) requestBody(c stats.Chart) ([]byte, error) {
	var chartType string
	switch c.Type {
	case stats.ChartBar:
		chartType = "bar"
	case stats.ChartHorizontalBar:
		chartType = "horizontalBar"
	case stats.ChartPie:
		chartType = "pie"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChartType, c.Type)
	}

	labels := c.Labels
	if labels == nil {
		labels = []string{}
	}
	sizes := c.Sizes
	if sizes == nil {
		sizes = []int64{}
	}

	config := map[string]any{
		"type": chartType,
		"data": map[string]any{
			"labels": labels,
			"datasets": []map[string]any{
				{"data": sizes},
			},
		},
		"options": map[string]any{
			"title":  map[string]any{"display": true, "text": c.Title},
			"legend": map[string]any{"display": c.Type == stats.ChartPie},
		},
	}

	return json.Marshal(map[string]any{
		"chart":           config,
		"width":           q.width,
		"height":          q.height,
		"format":          "png",
		"backgroundColor": "white",
	})
}

func (q *QuickChart) fetch(body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(q.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := q.client.DoTimeout(req, resp, q.timeout); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("chart service returned status %d", resp.StatusCode())
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}

// compose lays the images out horizontally on a white background and
// encodes the result as PNG.
func compose(images []image.Image) ([]byte, error) {
	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	x := 0
	for _, img := range images {
		b := img.Bounds()
		dst := image.Rect(x, 0, x+b.Dx(), b.Dy())
		draw.Draw(canvas, dst, img, b.Min, draw.Over)
		x += b.Dx()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
