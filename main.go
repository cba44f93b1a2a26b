package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/vellum/dsl"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/metrics/gotext"
	"github.com/ByLCY/vellum/renderer"
	canvasrenderer "github.com/ByLCY/vellum/renderer/canvas"
	rasterrenderer "github.com/ByLCY/vellum/renderer/raster"
	svgrenderer "github.com/ByLCY/vellum/renderer/svg"
)

// config 汇总命令行参数。
type config struct {
	input, output, debug string
	format, metrics      string
	rawUnits, minify     bool
	workers              int
	scale                float64
	data                 any
}

func main() {
	var cfg config
	var dataJSON string
	var verbose bool
	flag.StringVar(&cfg.input, "in", "examples/card.vellum", "DSL 文件路径")
	flag.StringVar(&cfg.output, "out", "output/card.svg", "输出路径")
	flag.StringVar(&cfg.format, "format", "svg", "输出格式：svg | canvas-svg | pdf | png")
	flag.StringVar(&cfg.metrics, "metrics", "gotext", "字形度量后端：gotext | canvas（canvas-svg 与 pdf 固定使用 canvas）")
	flag.StringVar(&cfg.debug, "debug", "", "布局调试 JSON 输出路径")
	flag.BoolVar(&cfg.rawUnits, "debug-raw-units", false, "在调试 JSON 中输出 debug.rawUnits 影子字段")
	flag.BoolVar(&cfg.minify, "minify", false, "压缩 SVG 输出")
	flag.IntVar(&cfg.workers, "workers", 0, "并行排版的文本块数量上限，0 表示 GOMAXPROCS")
	flag.Float64Var(&cfg.scale, "scale", 1, "PNG 设备像素比")
	flag.StringVar(&dataJSON, "data", "", "绑定到 DSL 的 JSON 数据")
	flag.BoolVar(&verbose, "v", false, "输出排版日志")
	flag.Parse()

	if verbose {
		layout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &cfg.data); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	if err := run(cfg); err != nil {
		log.Fatalf("生成 %s 失败: %v", cfg.format, err)
	}
	fmt.Printf("已生成 %s：%s\n", strings.ToUpper(cfg.format), cfg.output)
}

// pipeline 选择度量后端与渲染器；canvas 渲染器同时承担度量，保证字形一致。
func pipeline(cfg config) (layout.Typesetter, renderer.Renderer, error) {
	baseDir := filepath.Dir(cfg.input)
	var ts layout.Typesetter
	switch cfg.metrics {
	case "gotext", "":
		ts = gotext.New(baseDir)
	case "canvas":
		ts = canvasrenderer.NewRenderer(baseDir)
	default:
		return nil, nil, fmt.Errorf("未知的度量后端 %q", cfg.metrics)
	}

	switch cfg.format {
	case "svg":
		return ts, svgrenderer.New(svgrenderer.Options{Minify: cfg.minify}), nil
	case "png":
		return ts, rasterrenderer.New(rasterrenderer.Options{BaseDir: baseDir, Scale: cfg.scale}), nil
	case "canvas-svg", "pdf":
		format := canvasrenderer.FormatSVG
		if cfg.format == "pdf" {
			format = canvasrenderer.FormatPDF
		}
		r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: baseDir, Format: format})
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("未知的输出格式 %q", cfg.format)
	}
}

// run 串联解析、布局与渲染。
func run(cfg config) error {
	ts, r, err := pipeline(cfg)
	if err != nil {
		return err
	}
	file, err := os.Open(cfg.input)
	if err != nil {
		return fmt.Errorf("无法打开 DSL 文件 %s: %w", cfg.input, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析 DSL 失败: %w", err)
	}

	result, err := layout.Build(doc, cfg.data, layout.BuildOptions{
		Typesetter: ts,
		Workers:    cfg.workers,
		Debug:      layout.DebugOptions{RawUnits: cfg.rawUnits},
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	if result.Overflow {
		layout.Logger().Warn("内容超出页面", "input", cfg.input)
	}

	if cfg.debug != "" {
		if err := writeDebug(result, cfg.debug); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(cfg.output, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
