package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/roommate-booking/internal/config"
)

// captureWriter tees the response body into buf, up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.over {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.over = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cacheKey hashes the concrete request path (not the route pattern, which
// would collide across property ids) and, depending on strategy, the
// method and query.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "path":
		parts = []string{"path", r.URL.Path}
	case "method_path_query":
		parts = []string{"method", r.Method, "path", r.URL.Path, "q", r.URL.RawQuery}
	default:
		parts = []string{"path", r.URL.Path, "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs [status u32][header length u32][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func decodePayload(bs []byte) (int, http.Header, []byte, error) {
	if len(bs) < 8 {
		return 0, nil, nil, errors.New("short payload")
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	n := int(binary.BigEndian.Uint32(bs[4:8]))
	if n > len(bs)-8 {
		return 0, nil, nil, errors.New("bad header length")
	}
	header := http.Header{}
	if n > 0 {
		if err := json.Unmarshal(bs[8:8+n], &header); err != nil {
			return 0, nil, nil, err
		}
	}
	return status, header, bs[8+n:], nil
}

// NewRedisCache serves cached 200 responses for the configured methods and
// stores fresh ones for cfg.TTL.  Mounted only on display endpoints.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			bs, err := rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				status, header, body, derr := decodePayload(bs)
				if derr == nil {
					for k, vals := range header {
						if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "X-Cache") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, werr := c.Response().Write(body)
					return werr
				}
				log.WithError(derr).WithField("key", key).Warn("cache: corrupt entry")
			case !errors.Is(err, redis.Nil):
				log.WithError(err).Warn("cache: get failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.over {
				return nil
			}
			payload, err := encodePayload(cw.status, c.Response().Header().Clone(), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// the request context may already be cancelled
			if err := rdb.SetEx(context.Background(), key, payload, ttl).Err(); err != nil {
				log.WithError(err).Warn("cache: set failed")
			}
			return nil
		}
	}
}
