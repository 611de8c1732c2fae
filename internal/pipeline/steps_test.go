package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/pluginlinks/internal/enhance"
	"github.com/nao1215/pluginlinks/internal/model"
)

const pluginsURL = "http://localhost:9999/settings#plugins"

type mapperFunc func(ctx context.Context) (model.PackageURLMap, error)

func (f mapperFunc) PackageURLMap(ctx context.Context) (model.PackageURLMap, error) {
	return f(ctx)
}

func fixedMapper(urls model.PackageURLMap) enhance.URLMapper {
	return mapperFunc(func(context.Context) (model.PackageURLMap, error) {
		return urls, nil
	})
}

func runDefault(t *testing.T, job *Job, mapper enhance.URLMapper, opts ...DefaultOption) {
	t.Helper()
	opts = append(opts, WithPipelineLogger(quietLogger()))
	if err := DefaultPipeline(mapper, opts...).Execute(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("url column scenario", func(t *testing.T) {
		t.Parallel()

		job := newJob(t, `<table><thead><tr><th>Name</th><th>Version</th><th>URL</th></tr></thead>
			<tbody><tr><td>Foo</td><td>1.2.3</td><td>https://github.com/foo/foo</td></tr></tbody></table>`, pluginsURL)
		runDefault(t, job, nil)

		a := job.Doc.Find("td a")
		if a.Length() != 1 || a.Text() != "1.2.3" {
			t.Fatalf("expected version to be linked, got %d anchors", a.Length())
		}
		if href, _ := a.Attr("href"); href != "https://github.com/foo/foo" {
			t.Errorf("unexpected href %q", href)
		}
		if job.Pass.Shape != model.ShapeURLColumn {
			t.Errorf("unexpected shape %q", job.Pass.Shape)
		}
	})

	t.Run("package marker scenario", func(t *testing.T) {
		t.Parallel()

		job := newJob(t, `<table><thead><tr><th>Name</th><th>Version</th></tr></thead>
			<tbody><tr><td data-role="package-id">Foo</td><td data-role="version">1.2.3</td></tr></tbody></table>`, pluginsURL)
		runDefault(t, job, fixedMapper(model.PackageURLMap{"foo": "https://github.com/foo/foo"}))

		a := job.Doc.Find(`[data-role="version"] a`)
		if a.Length() != 1 || a.Text() != "1.2.3" {
			t.Fatalf("expected version to be linked, got %d anchors", a.Length())
		}
		if href, _ := a.Attr("href"); href != "https://github.com/foo/foo" {
			t.Errorf("unexpected href %q", href)
		}
		if job.Pass.Shape != model.ShapePackageMarker {
			t.Errorf("unexpected shape %q", job.Pass.Shape)
		}
	})

	t.Run("url column table never consults the mapper", func(t *testing.T) {
		t.Parallel()

		called := false
		mapper := mapperFunc(func(context.Context) (model.PackageURLMap, error) {
			called = true
			return nil, nil
		})
		job := newJob(t, `<table><thead><tr><th>Name</th><th>Version</th><th>URL</th></tr></thead>
			<tbody><tr><td data-role="package-id">Foo</td><td data-role="version">1.2.3</td><td></td></tr></tbody></table>`, pluginsURL)
		runDefault(t, job, mapper)

		if called {
			t.Error("expected mapper not to be called for a url column table")
		}
	})

	t.Run("non plugins page is left alone", func(t *testing.T) {
		t.Parallel()

		job := newJob(t, `<table><thead><tr><th>Name</th><th>Version</th><th>URL</th></tr></thead>
			<tbody><tr><td>Foo</td><td>1.2.3</td><td>https://github.com/foo/foo</td></tr></tbody></table>`, "http://localhost:9999/home")
		runDefault(t, job, nil)

		if job.Pass.Reason != model.ReasonNotPluginsPage {
			t.Errorf("unexpected reason %q", job.Pass.Reason)
		}
		if job.Doc.Find("a").Length() != 0 {
			t.Error("expected document to be unchanged")
		}
		if len(job.Pass.Steps) != 1 {
			t.Errorf("expected only the match step to run, got %v", job.Pass.Steps)
		}
	})

	t.Run("force skips the page guard", func(t *testing.T) {
		t.Parallel()

		job := newJob(t, `<table><thead><tr><th>Name</th><th>Version</th><th>URL</th></tr></thead>
			<tbody><tr><td>Foo</td><td>1.2.3</td><td>https://github.com/foo/foo</td></tr></tbody></table>`, "")
		runDefault(t, job, nil, WithForce(true))

		if !job.Pass.Changed() {
			t.Error("expected pass to link the row")
		}
	})

	t.Run("no plugin table", func(t *testing.T) {
		t.Parallel()

		job := newJob(t, `<h1>Settings</h1><p>nothing</p>`, pluginsURL)
		runDefault(t, job, nil)

		if job.Pass.Reason != model.ReasonNoPluginTable {
			t.Errorf("unexpected reason %q", job.Pass.Reason)
		}
	})

	t.Run("resolver failure skips the pass", func(t *testing.T) {
		t.Parallel()

		mapper := mapperFunc(func(context.Context) (model.PackageURLMap, error) {
			return nil, errors.New("graphql unreachable")
		})
		job := newJob(t, `<table><thead><tr><th>Name</th><th>Version</th></tr></thead>
			<tbody><tr><td data-role="package-id">Foo</td><td data-role="version">1.2.3</td></tr></tbody></table>`, pluginsURL)
		runDefault(t, job, mapper)

		if job.Pass.Reason != model.ReasonResolverFailed {
			t.Errorf("unexpected reason %q", job.Pass.Reason)
		}
		if job.Pass.Error == "" {
			t.Error("expected error to be recorded")
		}
		if job.Doc.Find("a").Length() != 0 {
			t.Error("expected document to be unchanged")
		}
	})

	t.Run("custom markers", func(t *testing.T) {
		t.Parallel()

		job := newJob(t, `<table><thead><tr><th>Plugin</th><th>Version</th></tr></thead>
			<tbody><tr><td><code class="id">Foo</code></td><td><em class="ver">1.0</em></td></tr></tbody></table>`, pluginsURL)
		runDefault(t, job, fixedMapper(model.PackageURLMap{"foo": "https://github.com/foo/foo"}),
			WithPipelineMarkers(enhance.Markers{PackageID: ".id", Version: ".ver"}))

		if job.Doc.Find(".ver a").Length() != 1 {
			t.Error("expected version marker to be linked")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		job := newJob(t, `<table><thead><tr><th>Name</th><th>Version</th><th>URL</th></tr></thead>
			<tbody><tr><td>Foo</td><td>1.2.3</td><td>https://github.com/foo/foo</td></tr></tbody></table>`, pluginsURL)
		runDefault(t, job, nil)
		first, err := job.Doc.HTML()
		if err != nil {
			t.Fatalf("failed to render: %v", err)
		}

		again := NewJob(job.Doc)
		runDefault(t, again, nil)
		second, err := again.Doc.HTML()
		if err != nil {
			t.Fatalf("failed to render: %v", err)
		}

		if first != second {
			t.Errorf("expected identical output\nfirst:  %s\nsecond: %s", first, second)
		}
		if again.Pass.Changed() {
			t.Error("expected second pass to change nothing")
		}
	})
}
