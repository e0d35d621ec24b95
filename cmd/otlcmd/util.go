package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/tdewolff/font"
	"github.com/tdewolff/prompt"
)

var extMimetype = map[string]string{
	".ttf":   "font/truetype",
	".ttc":   "font/truetype",
	".otf":   "font/opentype",
	".otc":   "font/opentype",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".eot":   "font/eot",
}

func readFont(filename string, index int) (*font.SFNT, string, int, error) {
	var err error
	var r *os.File
	if filename == "-" {
		r = os.Stdin
	} else if r, err = os.Open(filename); err != nil {
		return nil, "", 0, err
	}
	b, err := ioutil.ReadAll(r)
	if err != nil {
		r.Close()
		return nil, "", 0, err
	} else if err := r.Close(); err != nil {
		return nil, "", 0, err
	}

	n := len(b)
	mimetype, _ := font.MediaType(b)
	if b, err = font.ToSFNT(b); err != nil {
		return nil, "", 0, err
	}

	sfnt, err := font.ParseSFNT(b, index)
	if err != nil {
		return nil, "", 0, err
	}
	return sfnt, mimetype, n, nil
}

// writeFont serializes the font and replaces filename atomically: the bytes
// go to a temporary file in the same directory first and are renamed over
// the target.
func writeFont(filename, mimetype string, force bool, sfnt *font.SFNT) (int, error) {
	var b []byte
	var err error
	switch mimetype {
	case "font/truetype", "font/opentype":
		b = sfnt.Write()
	case "font/woff2":
		if b, err = sfnt.WriteWOFF2(); err != nil {
			return 0, err
		}
	default:
		if mimetype == "" {
			return 0, fmt.Errorf("mimetype not set")
		}
		return 0, fmt.Errorf("unsupported output file type: %v", mimetype)
	}
	n := len(b)

	if filename == "-" {
		if _, err := os.Stdout.Write(b); err != nil {
			return 0, err
		}
		return n, nil
	}

	exists := false
	if _, err := os.Stat(filename); err == nil {
		exists = true
		if !force && !prompt.YesNo(fmt.Sprintf("%s already exists, overwrite?", filename), false) {
			return 0, fmt.Errorf("file already exists")
		}
	}

	w, err := ioutil.TempFile(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(b); err != nil {
		w.Close()
		os.Remove(w.Name())
		return 0, err
	} else if err := w.Close(); err != nil {
		os.Remove(w.Name())
		return 0, err
	}
	if exists {
		if info, err := os.Stat(filename); err == nil {
			os.Chmod(w.Name(), info.Mode())
		}
	}
	if err := os.Rename(w.Name(), filename); err != nil {
		os.Remove(w.Name())
		return 0, err
	}
	return n, nil
}

// backupFont copies filename to the first free tilde name next to it, eg.
// Font.ttf => Font~001.ttf.
func backupFont(filename string) (string, error) {
	ext := filepath.Ext(filename)
	stem := filename[:len(filename)-len(ext)]
	for i := 1; i < 1000; i++ {
		backup := fmt.Sprintf("%s~%03d%s", stem, i, ext)
		if _, err := os.Stat(backup); err == nil {
			continue
		}
		r, err := os.Open(filename)
		if err != nil {
			return "", err
		}
		w, err := os.Create(backup)
		if err != nil {
			r.Close()
			return "", err
		}
		if _, err := io.Copy(w, r); err != nil {
			r.Close()
			w.Close()
			return "", err
		}
		r.Close()
		if err := w.Close(); err != nil {
			return "", err
		}
		return backup, nil
	}
	return "", fmt.Errorf("no free backup name for %s", filename)
}
