package challenge

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/extractor"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/utils"
)

// SourceSet is the backend files whose handlers are sent to the model.
type SourceSet struct {
	Dir   string
	Files []string
}

// FindSources picks the folder of the first supported source file, trying
// extensions in extractor.Extensions order. Within it a controller/
// subfolder wins, and files with "Web" in their name are preferred over
// the rest.
func FindSources(dir string) (*SourceSet, error) {
	opts := utils.DefaultFileTreeOptions()
	opts.MaxDepth = 0

	for _, ext := range extractor.Extensions {
		var folder string
		err := utils.Walk(dir, opts, func(rel string, d fs.DirEntry) error {
			if !d.IsDir() && strings.EqualFold(path.Ext(rel), ext) {
				folder = path.Dir(rel)
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			return nil, errors.New(errors.CodeIoError, domain, "searching sources in "+dir, err)
		}
		if folder == "" {
			continue
		}

		base := filepath.Join(dir, filepath.FromSlash(folder))
		if controller := filepath.Join(base, "controller"); utils.DirExists(controller) {
			if files := sourceFiles(controller); len(files) > 0 {
				return &SourceSet{Dir: controller, Files: files}, nil
			}
		}
		return &SourceSet{Dir: base, Files: sourceFiles(base)}, nil
	}

	return nil, errors.New(errors.CodeFileNotFound, domain, "no Python, JavaScript or Java files were found in "+dir, nil)
}

func sourceFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var all, web []string
	for _, e := range entries {
		if e.IsDir() || extractor.LanguageFromExtension(filepath.Ext(e.Name())) == extractor.Unknown {
			continue
		}
		all = append(all, e.Name())
		if strings.Contains(e.Name(), "Web") {
			web = append(web, e.Name())
		}
	}
	sort.Strings(all)
	sort.Strings(web)
	if len(web) > 0 {
		return web
	}
	return all
}

// ExtractPayload runs the extractor over every file of the set, each in the
// language its extension declares.
func ExtractPayload(set *SourceSet) (extractor.Result, error) {
	var result extractor.Result
	for _, name := range set.Files {
		data, err := os.ReadFile(filepath.Join(set.Dir, name))
		if err != nil {
			return extractor.Result{}, errors.New(errors.CodeIoError, domain, "reading "+name, err)
		}
		part := extractor.ExtractAs(string(data), extractor.LanguageFromExtension(filepath.Ext(name)))
		logger.Debugf("Extracted %d handler(s) from %s (%d health check(s) left out)", len(part.Blocks), name, part.Excluded)
		result = result.Merge(part)
	}

	if result.Empty() {
		return result, errors.Newf(errors.CodeExtractionEmpty, domain, "no request handlers found in %s", strings.Join(set.Files, ", "))
	}
	return result, nil
}
