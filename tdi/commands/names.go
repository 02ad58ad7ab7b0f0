package commands

import (
	"strings"
)

const maxNameDepth = 20

var nameReplacer = strings.NewReplacer("$", "", "-", "_", ":", "_", "[", "_", "]", "_")

// shorten keeps the last depth dotted components of a field name. whole is
// true when the name has no more components to add.
func shorten(name string, depth int) (short string, whole bool) {
	p := nameReplacer.Replace(name)
	cut := len(p)
	for i := 0; i < depth; i++ {
		cut = strings.LastIndex(p[:cut], ".")
		if cut == -1 {
			whole = true
			break
		}
	}
	return strings.ReplaceAll(p[cut+1:], ".", "_"), whole
}

// paramNames gives every field a parameter name, as short as possible
// without colliding with each other or with the taken ones. It returns the
// names, the taken names including the new ones, and the depth reached.
func paramNames(names []string, taken map[string]bool, depth int) (map[string]string, map[string]bool, int) {
	for {
		used := make(map[string]bool, len(taken)+len(names))
		for n := range taken {
			used[n] = true
		}
		out := make(map[string]string, len(names))
		collision := 0
		for _, name := range names {
			p, whole := shorten(name, depth)
			out[name] = p
			if used[p] {
				if whole {
					collision = -2
				} else if collision == 0 {
					collision = -1
				}
			}
			used[p] = true
		}
		if collision == 0 {
			return out, used, depth
		}
		depth++
		// equal names collide at any depth
		if depth > maxNameDepth && collision == -2 {
			return out, used, depth
		}
	}
}

// ParamNames returns the parameter names of the key and data fields of a
// command. Key and data names never collide.
func ParamNames(keys, data []string) (keyNames, dataNames map[string]string) {
	keyNames, taken, keyDepth := paramNames(keys, nil, 1)
	dataNames, _, dataDepth := paramNames(data, taken, keyDepth)
	for tries := 0; keyDepth != dataDepth; tries++ {
		if tries >= 50 {
			for k, v := range keyNames {
				keyNames[k] = v + "_key"
			}
			for k, v := range dataNames {
				dataNames[k] = v + "_data"
			}
			break
		}
		keyNames, taken, keyDepth = paramNames(keys, nil, dataDepth)
		dataNames, _, dataDepth = paramNames(data, taken, keyDepth)
	}
	return keyNames, dataNames
}
