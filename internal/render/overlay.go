package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

var (
	bandColor = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF}
	textWhite = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	textBlack = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF}
)

// OverlayRenderer rasterizes one full-frame transparent overlay: title
// banner, rank rows and watermark. It is a pure function of its inputs plus
// the shared font and emoji caches; identical inputs yield identical pixels.
// Font failures are fatal: a frame is either complete or not produced.
type OverlayRenderer struct {
	Layout LayoutConfig
	Drawer *TextDrawer
	Width  int
	Height int
}

func NewOverlayRenderer(layout LayoutConfig, drawer *TextDrawer, width, height int) *OverlayRenderer {
	return &OverlayRenderer{Layout: layout, Drawer: drawer, Width: width, Height: height}
}

// RenderOverlay draws the title band, the last `show` rank rows and the
// watermark into one image. Rank entries are revealed from the end of the
// list: show=1 draws only the last-indexed entry, show=len(ranks) draws all.
func (r *OverlayRenderer) RenderOverlay(ctx context.Context, title string, ranks []string, show int) (*image.NRGBA, error) {
	if show < 0 || show > len(ranks) {
		return nil, fmt.Errorf("ranks to show out of range: %d of %d", show, len(ranks))
	}

	img := r.blankCanvas()
	fit, err := r.fitTitle(title)
	if err != nil {
		return nil, err
	}
	blockH := r.titleBlockHeight(fit)

	if err := r.drawTitleBand(ctx, img, fit, blockH); err != nil {
		return nil, err
	}
	for index := len(ranks) - show; index < len(ranks); index++ {
		if err := r.drawRankRow(ctx, img, ranks[index], index, blockH); err != nil {
			return nil, err
		}
	}
	if err := r.drawWatermark(ctx, img); err != nil {
		return nil, err
	}

	return img, nil
}

// RenderBase draws only the title band and watermark. Used by the timed plan
// so the static content is rasterized once per job.
func (r *OverlayRenderer) RenderBase(ctx context.Context, title string) (*image.NRGBA, error) {
	img := r.blankCanvas()
	fit, err := r.fitTitle(title)
	if err != nil {
		return nil, err
	}
	blockH := r.titleBlockHeight(fit)

	if err := r.drawTitleBand(ctx, img, fit, blockH); err != nil {
		return nil, err
	}
	if err := r.drawWatermark(ctx, img); err != nil {
		return nil, err
	}

	return img, nil
}

// RenderRank draws exactly one rank row into an otherwise empty frame. The
// title is fitted (but not drawn) so the row lands at the same Y position it
// would occupy in a full overlay or above the base image.
func (r *OverlayRenderer) RenderRank(ctx context.Context, title string, ranks []string, index int) (*image.NRGBA, error) {
	if index < 0 || index >= len(ranks) {
		return nil, fmt.Errorf("rank index out of range: %d of %d", index, len(ranks))
	}

	img := r.blankCanvas()
	fit, err := r.fitTitle(title)
	if err != nil {
		return nil, err
	}
	if err := r.drawRankRow(ctx, img, ranks[index], index, r.titleBlockHeight(fit)); err != nil {
		return nil, err
	}

	return img, nil
}

func (r *OverlayRenderer) blankCanvas() *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
}

func (r *OverlayRenderer) fitTitle(title string) (FitResult, error) {
	cfg := r.Layout
	return FitText(r.Drawer.Fonts, title, cfg.TitleBoxWidth, cfg.TitleMaxLines, cfg.TitleFontSize)
}

// titleBlockHeight is shared by every render variant so rank row positions
// agree between the base image and per-rank images.
func (r *OverlayRenderer) titleBlockHeight(fit FitResult) float64 {
	cfg := r.Layout
	n := float64(len(fit.Lines))
	if n == 0 {
		return cfg.TitlePadTop + cfg.TitlePadBottom
	}
	return cfg.TitlePadTop + n*fit.Size + (n-1)*cfg.TitleLineSpacing + cfg.TitlePadBottom
}

func (r *OverlayRenderer) drawTitleBand(ctx context.Context, img *image.NRGBA, fit FitResult, blockH float64) error {
	band := image.Rect(0, 0, r.Width, int(blockH))
	draw.Draw(img, band, image.NewUniform(bandColor), image.Point{}, draw.Src)

	cfg := r.Layout
	for i, line := range fit.Lines {
		lineW, err := MeasureString(r.Drawer.Fonts, line, fit.Size)
		if err != nil {
			return err
		}
		x := (float64(r.Width) - lineW) / 2
		baseline := cfg.TitlePadTop + float64(i)*(fit.Size+cfg.TitleLineSpacing) + fit.Size*baselineRatio
		if _, err := r.Drawer.DrawString(ctx, img, line, x, baseline, fit.Size, textWhite, nil, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *OverlayRenderer) drawRankRow(ctx context.Context, img *image.NRGBA, label string, index int, blockH float64) error {
	cfg := r.Layout
	rowTop := cfg.RankRowTop + blockH + float64(index)*cfg.RankRowSpacing

	number := fmt.Sprintf("%d.", index+1)
	numberBaseline := rowTop + cfg.RankFontSize*baselineRatio
	if _, err := r.Drawer.DrawString(ctx, img, number, cfg.RankNumberX, numberBaseline, cfg.RankFontSize, cfg.TierColor(index), textBlack, cfg.StrokeWidth); err != nil {
		return err
	}

	fit, err := FitText(r.Drawer.Fonts, label, cfg.RankBoxWidth, cfg.RankMaxLines, cfg.RankFontSize)
	if err != nil {
		return err
	}

	// Center the label block against the number despite differing font sizes.
	labelH := float64(len(fit.Lines)) * fit.Size
	labelTop := rowTop + (cfg.RankFontSize-labelH)/2
	for i, line := range fit.Lines {
		baseline := labelTop + float64(i)*fit.Size + fit.Size*baselineRatio
		if _, err := r.Drawer.DrawString(ctx, img, line, cfg.RankLabelX, baseline, fit.Size, textWhite, textBlack, cfg.StrokeWidth); err != nil {
			return err
		}
	}
	return nil
}

func (r *OverlayRenderer) drawWatermark(ctx context.Context, img *image.NRGBA) error {
	cfg := r.Layout
	if cfg.Watermark == "" {
		return nil
	}
	w, err := MeasureString(r.Drawer.Fonts, cfg.Watermark, cfg.WatermarkSize)
	if err != nil {
		return err
	}
	x := float64(r.Width) - cfg.WatermarkPad - w
	baseline := float64(r.Height) - cfg.WatermarkPad
	if _, err := r.Drawer.DrawString(ctx, img, cfg.Watermark, x, baseline, cfg.WatermarkSize, textWhite, textBlack, cfg.StrokeWidth); err != nil {
		return err
	}
	return nil
}
