package executor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/arthur-debert/romlayout/pkg/errors"
	"github.com/arthur-debert/romlayout/pkg/logging"
	"github.com/arthur-debert/romlayout/pkg/shell"
	"github.com/arthur-debert/romlayout/pkg/types"
	"github.com/rs/zerolog"
)

// junctionTimeout bounds the mklink invocation used for the junction
// fallback.
const junctionTimeout = 10 * time.Second

// probeFileName is written and removed inside a fresh link to confirm
// it is traversable.
const probeFileName = ".romlayout_probe"

// LinkResult records how a link was materialized. Method is set as
// soon as a link object exists on disk, even when the follow-up
// accessibility probe fails, so callers can always record rollback
// metadata for what was actually created.
type LinkResult struct {
	Method types.LinkMethod
}

// Linker creates a link from target to source, preferring a symlink
// and falling back to an NTFS junction when symlink creation is denied
// for lack of privileges.
type Linker interface {
	Link(ctx context.Context, source, target string) (LinkResult, error)
}

type osLinker struct {
	fs     types.FS
	runner shell.Runner
	logger zerolog.Logger
	goos   string
}

// NewLinker creates the production Linker.
func NewLinker(fs types.FS, runner shell.Runner) Linker {
	return &osLinker{
		fs:     fs,
		runner: runner,
		logger: logging.GetLogger("executor.linker"),
		goos:   runtime.GOOS,
	}
}

func (l *osLinker) Link(ctx context.Context, source, target string) (LinkResult, error) {
	err := l.fs.Symlink(source, target)
	if err == nil {
		res := LinkResult{Method: types.LinkMethodSymlink}
		return res, l.probe(target)
	}

	if !isPrivilegeError(err) {
		return LinkResult{}, errors.Wrapf(err, errors.ErrSymlinkCreate,
			"failed to create symlink %s", target)
	}

	l.logger.Warn().
		Str("target", target).
		Err(err).
		Msg("Symlink creation denied, falling back to junction")

	if jerr := l.createJunction(ctx, source, target); jerr != nil {
		return LinkResult{}, jerr
	}
	res := LinkResult{Method: types.LinkMethodJunction}
	return res, l.probe(target)
}

// createJunction shells out to mklink. Junctions do not require
// elevation but only exist on Windows; elsewhere a privilege failure
// has no fallback.
func (l *osLinker) createJunction(ctx context.Context, source, target string) error {
	if l.goos != "windows" {
		return errors.New(errors.ErrSymlinkCreate,
			"symlink creation requires elevated privileges and no junction fallback exists on this platform")
	}

	// mklink resolves relative link targets against the process working
	// directory, not the link location, so hand it an absolute source.
	abs := source
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(filepath.Dir(target), abs)
	}

	_, stderr, err := l.runner.Run(ctx, junctionTimeout, "cmd.exe", "/c", "mklink", "/J", target, abs)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrCommandTimeout) {
			return err
		}
		return errors.Wrapf(err, errors.ErrJunctionCreate,
			"failed to create junction %s: %s", target, strings.TrimSpace(stderr))
	}
	return nil
}

// probe verifies a fresh link is traversable by writing and deleting a
// marker file through it. Links to files are verified by Stat instead.
func (l *osLinker) probe(target string) error {
	info, err := l.fs.Stat(target)
	if err != nil {
		return errors.Wrapf(err, errors.ErrLinkProbe, "link %s does not resolve", target)
	}
	if !info.IsDir() {
		return nil
	}

	marker := filepath.Join(target, probeFileName)
	if err := l.fs.WriteFile(marker, []byte("probe"), 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrLinkProbe, "link %s is not writable", target)
	}
	if err := l.fs.Remove(marker); err != nil {
		return errors.Wrapf(err, errors.ErrLinkProbe, "link %s probe cleanup failed", target)
	}
	return nil
}

// isPrivilegeError reports whether a symlink failure looks like a
// missing-privilege condition rather than a structural problem.
func isPrivilegeError(err error) bool {
	if os.IsPermission(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "privilege not held") ||
		strings.Contains(msg, "privilege is not held") ||
		strings.Contains(msg, "access is denied")
}
