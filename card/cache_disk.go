package card

import (
	"crypto/sha1"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pardo/pkg/config"
)

var (
	photoDiskOnce sync.Once
	photoDiskDir  string
	photoDiskMax  int64
	photoDiskMu   sync.Mutex
)

func initPhotoDisk() {
	photoDiskDir = config.GetEnv("PARDO_IMG_CACHE_DIR", filepath.Join("cache", "img"))
	if err := os.MkdirAll(photoDiskDir, 0o755); err != nil {
		return
	}
	mb := config.GetEnvInt("PARDO_IMG_CACHE_DISK_MB", 100)
	if mb < 0 {
		mb = 0
	}
	photoDiskMax = int64(mb) * 1024 * 1024
}

func photoDiskKey(url string) (string, string) {
	sum := sha1.Sum([]byte(url))
	name := hex.EncodeToString(sum[:])
	dir := filepath.Join(photoDiskDir, name[:1], name[1:2])
	return dir, filepath.Join(dir, name+".bin")
}

func photoDiskGet(url string) ([]byte, bool) {
	photoDiskOnce.Do(initPhotoDisk)
	_, path := photoDiskKey(url)
	b, err := os.ReadFile(path)
	if err != nil || len(b) == 0 {
		return nil, false
	}
	_ = os.Chtimes(path, time.Now(), time.Now())
	return b, true
}

func photoDiskPut(url string, data []byte) {
	photoDiskOnce.Do(initPhotoDisk)
	dir, path := photoDiskKey(url)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, path)
	go prunePhotoDisk()
}

func prunePhotoDisk() {
	photoDiskMu.Lock()
	defer photoDiskMu.Unlock()
	type cached struct {
		path string
		size int64
		mod  time.Time
	}
	var files []cached
	var total int64
	filepath.WalkDir(photoDiskDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".bin") {
			return nil
		}
		if info, e := d.Info(); e == nil {
			files = append(files, cached{p, info.Size(), info.ModTime()})
			total += info.Size()
		}
		return nil
	})
	if photoDiskMax <= 0 || total <= photoDiskMax {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files {
		if total <= photoDiskMax {
			break
		}
		_ = os.Remove(f.path)
		total -= f.size
	}
}
