package assets

import "github.com/spaghettifunk/particle-shadowing/engine/assets/loaders"

type Loader interface {
	Load(path string) (*loaders.Resource, error)
}
