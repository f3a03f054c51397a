package main

import (
	"os"

	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"golang.org/x/text/encoding"
)

func loadEMA(path string, enc encoding.Encoding) (*ema.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := ema.NewParser(data)
	p.SetEncoding(enc)
	return p.Parse()
}

func loadEAN(path string, enc encoding.Encoding) (*ean.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := ean.NewParser(data)
	p.SetEncoding(enc)
	return p.Parse()
}

func saveEMA(f *ema.File, path string, enc encoding.Encoding) error {
	w := ema.NewWriter()
	w.Encoding = enc
	data, err := w.Write(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func saveEAN(f *ean.File, path string, enc encoding.Encoding) error {
	w := ean.NewWriter()
	w.Encoding = enc
	data, err := w.Write(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func saveYAML(v interface{}, path string) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dump(w, v); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
