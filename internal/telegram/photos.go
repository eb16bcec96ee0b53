package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

func (r *Router) acceptPhoto(msg tgbotapi.Message, engines Engines) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1]
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		r.replyError(cid, eris.Wrap(err, "get file"))
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	imgBytes, err := download(url)
	if err != nil {
		r.replyError(cid, eris.Wrap(err, "download photo"))
		return
	}

	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}

	first := enqueuePhoto(key, cid, msg.From.ID, msg.MediaGroupID, imgBytes,
		func(k string) { r.processBatch(k, engines) })

	if first {
		r.send(cid, "🔍 Analyzing schedule… If it spans several photos, send them all now and I'll read them as one page.")
	}
}

// enqueuePhoto adds one photo to its batch and re-arms the debounce timer.
// A photo landing on a batch already taken for processing starts a new
// batch instead of vanishing into the closed one. Reports whether the
// photo opened the batch.
func enqueuePhoto(key string, chatID, userID int64, mediaGroupID string, img []byte, fire func(key string)) bool {
	for {
		bi, _ := batches.LoadOrStore(key, &photoBatch{
			ChatID: chatID, UserID: userID, MediaGroupID: mediaGroupID,
		})
		b := bi.(*photoBatch)

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			batches.CompareAndDelete(key, bi)
			continue
		}
		b.images = append(b.images, img)
		first := len(b.images) == 1
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = time.AfterFunc(debounce, func() { fire(key) })
		b.mu.Unlock()
		return first
	}
}

// takeBatch closes the batch under key and removes it, returning its photos.
func takeBatch(key string) (*photoBatch, [][]byte) {
	bi, ok := batches.Load(key)
	if !ok {
		return nil, nil
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	b.closed = true
	batches.Delete(key)
	b.mu.Unlock()
	return b, images
}

func (r *Router) processBatch(key string, engines Engines) {
	b, images := takeBatch(key)
	if b == nil || len(images) == 0 {
		return
	}

	merged, err := combineAsOne(images)
	if err != nil {
		zap.L().Warn("photo merge failed", zap.Int64("chat_id", b.ChatID), zap.Error(err))
		r.replyError(b.ChatID, eris.Wrap(err, "merge photos"))
		return
	}

	r.runExtraction(context.Background(), b.ChatID, b.UserID, merged, engines)
}

// combineAsOne stacks the photos vertically on a white canvas so a
// schedule split across pages reaches the model as a single image, then
// scales the result down under the pixel cap.
func combineAsOne(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for _, b := range images {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, eris.Wrap(err, "decode photo")
		}
		decoded = append(decoded, img)
		if w := img.Bounds().Dx(); w > maxW {
			maxW = w
		}
		sumH += img.Bounds().Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, eris.New("empty images")
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(dst, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	final := image.Image(dst)
	if total := maxW * sumH; total > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(total))
		newW := max(1, int(float64(maxW)*scale+0.5))
		newH := max(1, int(float64(sumH)*scale+0.5))
		final = scaleDown(dst, newW, newH)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, final, &jpeg.Options{Quality: 90}); err != nil {
		return nil, eris.Wrap(err, "encode merged image")
	}
	return out.Bytes(), nil
}

// scaleDown is a nearest-neighbour resize; good enough for text the model
// reads at this resolution.
func scaleDown(src image.Image, newW, newH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	sb := src.Bounds()
	srcW, srcH := sb.Dx(), sb.Dy()
	for y := 0; y < newH; y++ {
		sy := sb.Min.Y + (y*srcH)/newH
		for x := 0; x < newW; x++ {
			sx := sb.Min.X + (x*srcW)/newW
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func download(url string) ([]byte, error) {
	resp, err := httpClient().Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, eris.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
