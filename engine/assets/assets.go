package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/particle-shadowing/engine/assets/loaders"
	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

type AssetInfo struct {
	// Path is relative to the asset directory, with forward slashes.
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes an asset directory and, once watching, keeps the
// index current and reports changed shader binaries.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	shaders  chan string
}

func NewAssetManager(root string) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create asset watcher")
	}

	am := &AssetManager{
		root:     filepath.Clean(root),
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[loaders.ResourceType]Loader),
		fsnotify: fsWatch,
		shaders:  make(chan string, 16),
		done:     make(chan struct{}),
	}
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.ImageLoader{})

	if err := am.watchRecursive(am.root); err != nil {
		fsWatch.Close()
		return nil, err
	}
	core.LogDebug("Indexed %d assets under %s.", am.Len(), am.root)
	return am, nil
}

func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Watch starts delivering file system events. Changed shader binaries are
// published on ShaderChanges.
func (am *AssetManager) Watch() {
	go am.start()
}

// ShaderChanges yields the asset path of every created or rewritten .spv
// file. Events are dropped while the channel is full.
func (am *AssetManager) ShaderChanges() <-chan string {
	return am.shaders
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

// Load decodes the asset at path, relative to the asset directory.
func (am *AssetManager) Load(path string) (*loaders.Resource, error) {
	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, errors.Wrapf(core.ErrAssetNotFound, "%s", path)
	}

	loader, ok := am.loaders[asset.Type]
	if !ok {
		return nil, errors.Newf("no loader registered for asset type %s", asset.Type)
	}
	return loader.Load(filepath.Join(am.root, filepath.FromSlash(path)))
}

// LoadShader returns the SPIR-V words of shaders/<name>.spv.
func (am *AssetManager) LoadShader(name string) ([]uint32, error) {
	res, err := am.Load("shaders/" + name + ".spv")
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

func (am *AssetManager) LoadImage(path string) (*loaders.ImageData, error) {
	res, err := am.Load(path)
	if err != nil {
		return nil, err
	}
	img, ok := res.Data.(*loaders.ImageData)
	if !ok {
		return nil, errors.Newf("%s is a %s, not an image", path, res.Type)
	}
	return img, nil
}

// Close stops watching. It is safe to call more than once.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("Asset watcher: %v", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("Unable to watch %s: %v", e.Name, err)
			}
			return
		}
	}

	rel, ok := am.relative(e.Name)
	if !ok {
		return
	}
	switch {
	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if am.indexFile(rel) == loaders.ResourceTypeShader {
			select {
			case am.shaders <- rel:
			default:
			}
		}
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		am.removeAsset(rel)
	}
}

func (am *AssetManager) relative(name string) (string, bool) {
	rel, err := filepath.Rel(am.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// watchRecursive adds every directory under path to the watch list and
// indexes the files it finds.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		if rel, ok := am.relative(walkPath); ok {
			am.indexFile(rel)
		}
		return nil
	})
}

func (am *AssetManager) indexFile(path string) loaders.ResourceType {
	assetType := determineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return assetType
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return assetType
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func determineAssetType(path string) loaders.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return loaders.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return loaders.ResourceTypeImage
	default:
		return loaders.ResourceTypeNone
	}
}
