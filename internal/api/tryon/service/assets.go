package tryonService

import (
	"PerfectFit/pkg/utils"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// ImageLoader resolves an image reference: a data URL, an http(s) URL or a
// path relative to the asset directory.
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

type imageLoader struct {
	dir     string
	utils   utils.IUtils
	timeout time.Duration

	mu    sync.RWMutex
	cache map[string]image.Image
}

// NewImageLoader caches everything except data URLs, which are per-capture.
func NewImageLoader(dir string, u utils.IUtils) ImageLoader {
	return &imageLoader{
		dir:     dir,
		utils:   u,
		timeout: 15 * time.Second,
		cache:   make(map[string]image.Image),
	}
}

func (l *imageLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, utils.ErrEmptyImage
	}
	if strings.HasPrefix(ref, "data:") {
		return l.utils.DecodeImage(ref)
	}

	l.mu.RLock()
	img, ok := l.cache[ref]
	l.mu.RUnlock()
	if ok {
		return img, nil
	}

	var raw []byte
	var err error
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		raw, err = l.fetch(ctx, ref)
	} else {
		raw, err = os.ReadFile(filepath.Join(l.dir, filepath.Clean("/"+ref)))
	}
	if err != nil {
		return nil, err
	}

	img, err = utils.DecodeImageBytes(raw)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[ref] = img
	l.mu.Unlock()
	return img, nil
}

func (l *imageLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := fiber.Get(url)
	a.Timeout(l.timeout)
	if err := a.Parse(); err != nil {
		return nil, err
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, code)
	}
	return body, nil
}
