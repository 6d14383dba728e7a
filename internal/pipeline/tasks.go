package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yaklabco/stipple/internal/cssproc"
	"github.com/yaklabco/stipple/internal/csssort"
	"github.com/yaklabco/stipple/internal/dryrun"
	"github.com/yaklabco/stipple/internal/fsops"
	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/internal/publish"
	"github.com/yaklabco/stipple/internal/sass"
	"github.com/yaklabco/stipple/internal/svgsprite"
	"github.com/yaklabco/stipple/internal/task"
)

const outputPerm = 0o644

func (p *Pipeline) clean(ctx context.Context) error {
	dir := p.out("")
	task.Logger(ctx).Debug("removing", logging.Dir, dir)
	return fsops.RemoveAll(dir)
}

// copyTree copies the files matching patterns, keeping their path below
// source/, into the output root.
func (p *Pipeline) copyTree(ctx context.Context, patterns ...string) error {
	files, err := fsops.Expand(p.opts.ProjectDir, patterns...)
	if err != nil {
		return err
	}

	copied := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := p.out(strings.TrimPrefix(rel, SourceDir+"/"))
		changed, err := fsops.CopyFile(dst, p.abs(rel))
		if err != nil {
			return err
		}
		if changed {
			copied++
		}
	}

	task.Logger(ctx).Debug("copied", logging.Count, copied, "skipped", len(files)-copied)
	return nil
}

func (p *Pipeline) copyAssets(ctx context.Context) error {
	return p.copyTree(ctx, CopyGlobs()...)
}

func (p *Pipeline) html(ctx context.Context) error {
	return p.copyTree(ctx, HTMLGlob)
}

// css compiles the entry stylesheet. Compile and post-processing errors
// are swallowed so the stylesheet already on disk stays in place.
func (p *Pipeline) css(ctx context.Context) error {
	entry := p.abs(StyleEntry)
	res, err := p.opts.Compiler.Compile(ctx, entry, sass.Options{
		LoadPaths: p.opts.LoadPaths,
		SourceMap: p.opts.SourceMap,
	})
	switch {
	case errors.Is(err, sass.ErrDryRun):
		return nil
	case sass.IsCompileError(err):
		return task.Swallow(err)
	case err != nil:
		return err
	}

	out, err := p.processor.Process(res.CSS)
	if err != nil {
		var pe *cssproc.ParseError
		if errors.As(err, &pe) {
			return task.Swallow(err)
		}
		return err
	}

	cssPath := p.out(StylesheetPath)
	if p.opts.SourceMap && len(res.Map) > 0 {
		sm, err := cssproc.RewriteSourceMap(res.Map, filepath.Dir(cssPath), StylesheetName)
		if err != nil {
			return err
		}
		if _, err := fsops.WriteAtomic(p.out(SourceMapPath), sm, outputPerm); err != nil {
			return err
		}
		out = cssproc.AppendMappingURL(out, SourceMapName)
	}

	changed, err := fsops.WriteAtomic(cssPath, out, outputPerm)
	if err != nil {
		return err
	}
	if !changed {
		task.Logger(ctx).Debug("stylesheet unchanged", logging.Path, cssPath)
	}
	return nil
}

func (p *Pipeline) sprite(ctx context.Context) error {
	icons, err := fsops.Expand(p.opts.ProjectDir, IconGlob)
	if err != nil {
		return err
	}
	paths := make([]string, len(icons))
	for i, rel := range icons {
		paths[i] = p.abs(rel)
	}

	data, n, err := svgsprite.BuildFiles(paths)
	if err != nil {
		return err
	}
	if p.opts.MinifySprite {
		if data, err = svgsprite.Minify(data); err != nil {
			return err
		}
	}

	if _, err := fsops.WriteAtomic(p.out(SpritePath), data, outputPerm); err != nil {
		return err
	}
	task.Logger(ctx).Debug("sprite written", logging.Count, n)
	return nil
}

// cssSort sorts every fragment it can and reports the ones it could not.
func (p *Pipeline) cssSort(ctx context.Context) error {
	files, err := fsops.Expand(p.opts.ProjectDir, FragmentGlob)
	if err != nil {
		return err
	}

	var errs []error
	sorted := 0
	for _, rel := range files {
		changed, err := csssort.SortFile(p.abs(rel))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			sorted++
			task.Logger(ctx).Info("sorted", logging.Path, rel)
		}
	}

	task.Logger(ctx).Debug("fragments checked", logging.Count, len(files), "rewritten", sorted)
	return errors.Join(errs...)
}

func (p *Pipeline) deploy(ctx context.Context) error {
	d := p.opts.Deploy
	dir := p.out("")
	if _, err := os.Stat(dir); err != nil && !dryrun.IsDryRun() {
		return fmt.Errorf("nothing to deploy, run %s first: %w", TaskBuild, err)
	}

	_, err := publish.Publish(ctx, publish.Options{
		ProjectDir: p.opts.ProjectDir,
		Dir:        dir,
		Remote:     d.Remote,
		Branch:     d.Branch,
		Message:    d.Message,
		CacheDir:   d.CacheDir,
		Token:      d.Token,
		Push:       d.Push,
		Logger:     task.Logger(ctx),
	})
	return err
}
