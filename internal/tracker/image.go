// ABOUTME: Image requests, reference counted per SDK image handle
// ABOUTME: One load callback per handle; one response and one release per request
package tracker

import (
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/convert"
	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

type pendingImage struct {
	id      sdk.ImageID
	encoded string
	image   sdk.Image

	// refs counts ImageCreate calls, each owing one release and one response
	refs int
}

func (p *pendingImage) release() {
	for ; p.refs > 0; p.refs-- {
		p.image.Release()
	}
}

// LoadImage fetches image bytes by base64 id
func (t *Tracker) LoadImage(req *protocol.ImageRequest) {
	id, ok := convert.ParseImageID(req.ID)
	if !ok {
		t.log.Warn("invalid image id", zap.String("id", req.ID))
		t.send(&protocol.Message{ImageResponse: &protocol.ImageResponse{ID: req.ID}})
		return
	}

	img := t.session.ImageCreate(id)
	if img == nil {
		t.send(&protocol.Message{ImageResponse: &protocol.ImageResponse{ID: req.ID}})
		return
	}

	if p, ok := t.images.get(img); ok {
		p.refs++
		return
	}

	t.images.put(img, &pendingImage{id: id, encoded: req.ID, image: img, refs: 1})
	img.AddLoadCallback()
	t.tryImage(img)
}

// ImageLoaded handles the image load callback
func (t *Tracker) ImageLoaded(img sdk.Image) {
	if _, ok := t.images.get(img); !ok {
		t.unknownHandle("image")
		return
	}
	t.tryImage(img)
}

func (t *Tracker) tryImage(img sdk.Image) {
	if !img.IsLoaded() {
		return
	}

	p, _ := t.images.take(img)
	img.RemoveLoadCallback()

	var data []byte
	if err := img.Err(); err != nil {
		t.log.Warn("image failed to load", zap.String("id", p.encoded), zap.Error(err))
	} else {
		data = img.Data()
	}

	for i := 0; i < p.refs; i++ {
		t.send(&protocol.Message{ImageResponse: &protocol.ImageResponse{ID: p.encoded, Data: data}})
	}
	p.release()
}
