// Package tags writes ID3v2 metadata and cover art onto extracted MP3 files.
package tags

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"time"

	id3v2 "github.com/bogem/id3v2/v2"
)

// Metadata is what gets written onto an MP3 file.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Year   string

	// CoverURLs are tried in order until one decodes. The winner is center
	// cropped to a square and embedded as the front cover.
	CoverURLs []string
}

var coverClient = &http.Client{Timeout: 30 * time.Second}

// Apply writes metadata onto the MP3 at path. A failed cover fetch is logged
// and skipped; text frames are always written.
func Apply(ctx context.Context, path string, meta Metadata) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 for tagging: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	album := meta.Album
	if album == "" {
		album = "YouTube Music"
	}
	tag.SetAlbum(album)
	if meta.Year != "" {
		tag.SetYear(meta.Year)
	}

	if cover := fetchCover(ctx, meta.CoverURLs); cover != nil {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save ID3 tag: %w", err)
	}
	return nil
}

// fetchCover downloads the first usable cover image, center crops it square,
// and re-encodes it as JPEG. Returns nil when no candidate works.
func fetchCover(ctx context.Context, urls []string) []byte {
	for _, u := range urls {
		if u == "" {
			continue
		}
		data, err := downloadImage(ctx, u)
		if err != nil {
			log.Printf("[tags] cover fetch failed for %s: %v", u, err)
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			log.Printf("[tags] cover decode failed for %s: %v", u, err)
			continue
		}

		cropped := centerCropSquare(img)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: 95}); err != nil {
			log.Printf("[tags] cover encode failed: %v", err)
			continue
		}
		return buf.Bytes()
	}
	return nil
}

func downloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := coverClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// centerCropSquare crops the image to a centered square. Images that are
// already square (or don't support SubImage) are returned as-is.
func centerCropSquare(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}

	si, ok := img.(subImager)
	if !ok {
		return img
	}

	return si.SubImage(squareRect(b))
}

// squareRect computes the centered square crop rectangle for bounds b.
func squareRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	size := w
	if h < w {
		size = h
	}
	x0 := b.Min.X + (w-size)/2
	y0 := b.Min.Y + (h-size)/2
	return image.Rect(x0, y0, x0+size, y0+size)
}
