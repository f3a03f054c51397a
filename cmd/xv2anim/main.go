package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/binzume/xv2anim/converter"
	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"github.com/qmuntal/gltf"
	"golang.org/x/text/encoding"
)

type editOptions struct {
	bake     bool
	hueSet   float64
	hueVar   float64
	hueDelta string
	seed     int64
}

func defaultOutputFile(input string) string {
	ext := strings.ToLower(filepath.Ext(input))
	base := input[0 : len(input)-len(ext)]
	if ext == ".ema" {
		return base + ".ean"
	} else if ext == ".ean" {
		return base + ".glb"
	}
	return input + ".yaml"
}

// parseHueDelta parses "dh,ds,dl". Missing values are 0.
func parseHueDelta(s string) ([3]float64, error) {
	var d [3]float64
	parts := strings.Split(s, ",")
	if len(parts) > 3 {
		return d, fmt.Errorf("invalid hue delta %q", s)
	}
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return d, fmt.Errorf("invalid hue delta %q: %w", s, err)
		}
		d[i] = v
	}
	return d, nil
}

func applyEdits(f *ema.File, conf *Config, opts *editOptions) error {
	var delta [3]float64
	if opts.hueDelta != "" {
		var err error
		if delta, err = parseHueDelta(opts.hueDelta); err != nil {
			return err
		}
	}
	rnd := rand.New(rand.NewSource(opts.seed))
	for _, a := range f.Animations {
		if opts.bake {
			a.BakeBezier(nil)
		}
		if opts.hueSet >= 0 {
			a.HueSet(opts.hueSet, opts.hueVar, rnd, conf.Materials, nil)
		}
		if opts.hueDelta != "" {
			a.HueAdjust(delta[0], delta[1], delta[2], conf.Materials, nil)
		}
	}
	return nil
}

func emaToEan(f *ema.File, conf *Config) (*ean.File, error) {
	return converter.NewEMAToEANConverter(&converter.EMAToEANOption{
		RotationOrder: conf.RotationOrder,
		Materials:     conf.Materials,
	}).Convert(f)
}

func eanToGlb(f *ean.File, conf *Config, output string) error {
	doc, err := converter.NewEANToGLTFConverter(&converter.EANToGLTFOption{FrameRate: conf.FrameRate}).Convert(f)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, output)
}

func convertEMA(input, output string, conf *Config, enc encoding.Encoding, opts *editOptions) error {
	f, err := loadEMA(input, enc)
	if err != nil {
		return err
	}
	log.Println("Animations: ", len(f.Animations))
	if err := applyEdits(f, conf, opts); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(output))
	switch ext {
	case ".ema":
		return saveEMA(f, output, enc)
	case ".yaml", ".yml":
		return saveYAML(f, output)
	case ".ean", ".glb":
		e, err := emaToEan(f, conf)
		if err != nil {
			return err
		}
		if ext == ".glb" {
			return eanToGlb(e, conf, output)
		}
		return saveEAN(e, output, enc)
	}
	return fmt.Errorf("Unsupported output type: %v", ext)
}

func convertEAN(input, output string, conf *Config, enc encoding.Encoding, opts *editOptions) error {
	f, err := loadEAN(input, enc)
	if err != nil {
		return err
	}
	log.Println("Animations: ", len(f.Animations))

	ext := strings.ToLower(filepath.Ext(output))
	switch ext {
	case ".ean":
		return saveEAN(f, output, enc)
	case ".glb":
		return eanToGlb(f, conf, output)
	case ".yaml", ".yml":
		return saveYAML(f, output)
	case ".ema":
		m, err := converter.NewEANToEMAConverter(&converter.EANToEMAOption{
			RotationOrder: conf.RotationOrder,
			ValueType:     conf.ValueType,
		}).Convert(f)
		if err != nil {
			return err
		}
		if err := applyEdits(m, conf, opts); err != nil {
			return err
		}
		return saveEMA(m, output, enc)
	}
	return fmt.Errorf("Unsupported output type: %v", ext)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s input.(ema|ean) [output.(ema|ean|glb|yaml)]\n", os.Args[0])
		flag.PrintDefaults()
	}
	confFile := flag.String("config", "", "config file (yaml)")
	bake := flag.Bool("bake", false, "bake bezier keyframes into linear keyframes (.ema)")
	hueSet := flag.Float64("hueset", -1, "set hue of material colors (0-360)")
	hueVar := flag.Float64("huevar", 0, "random hue variance for -hueset")
	hueDelta := flag.String("huedelta", "", "shift hue,saturation,lightness of material colors")
	seed := flag.Int64("seed", 1, "random seed for -huevar")
	fps := flag.Float64("fps", 0, "frame rate for .glb output (0: config)")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}
	input := flag.Arg(0)
	output := defaultOutputFile(input)
	if flag.NArg() > 1 {
		output = flag.Arg(1)
	}

	path := *confFile
	if path == "" {
		path = input[0:len(input)-len(filepath.Ext(input))] + ".xv2anim.yaml"
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	conf, err := loadConfig(path)
	if err != nil {
		log.Fatal(err)
	}
	if *fps > 0 {
		conf.FrameRate = float32(*fps)
	}
	enc, err := conf.Encoding()
	if err != nil {
		log.Fatal(err)
	}

	opts := &editOptions{bake: *bake, hueSet: *hueSet, hueVar: *hueVar, hueDelta: *hueDelta, seed: *seed}
	log.Print("out: ", output)
	switch strings.ToLower(filepath.Ext(input)) {
	case ".ema":
		err = convertEMA(input, output, conf, enc, opts)
	case ".ean":
		err = convertEAN(input, output, conf, enc, opts)
	default:
		err = fmt.Errorf("Unsupported input type: %v", filepath.Ext(input))
	}
	if err != nil {
		log.Fatal(err)
	}
}
