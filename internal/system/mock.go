package system

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MockFS implements FileSystem for testing.
type MockFS struct {
	mu       sync.RWMutex
	files    map[string]*mockFile
	dirs     map[string]bool
	symlinks map[string]string
	devices  map[string]devNums

	// Error injection
	ReadFileErr  error
	WriteFileErr error
	StatErr      error
	ReadDirErr   error
}

type mockFile struct {
	data []byte
	mode fs.FileMode
}

type devNums struct {
	major, minor uint32
}

// NewMockFS creates a new MockFS with an empty filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files:    make(map[string]*mockFile),
		dirs:     make(map[string]bool),
		symlinks: make(map[string]string),
		devices:  make(map[string]devNums),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFS) AddFile(path string, data []byte, mode fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &mockFile{data: data, mode: mode}
	dir := filepath.Dir(path)
	for dir != "." && dir != "/" {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

// AddDir adds a directory to the mock filesystem.
func (m *MockFS) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
}

// AddCharDevice adds a character special file with the given device numbers.
func (m *MockFS) AddCharDevice(path string, major, minor uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &mockFile{mode: fs.ModeCharDevice | fs.ModeDevice | 0660}
	m.devices[path] = devNums{major: major, minor: minor}
	dir := filepath.Dir(path)
	for dir != "." && dir != "/" {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

// AddSymlink adds a symlink from path to target.
func (m *MockFS) AddSymlink(path, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symlinks[path] = target
	dir := filepath.Dir(path)
	for dir != "." && dir != "/" {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

// GetFile returns the contents of a file in the mock filesystem.
func (m *MockFS) GetFile(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, false
	}
	return f.data, true
}

func (m *MockFS) ReadFile(path string) ([]byte, error) {
	if m.ReadFileErr != nil {
		return nil, m.ReadFileErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return f.data, nil
}

func (m *MockFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	if m.WriteFileErr != nil {
		return m.WriteFileErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &mockFile{data: data, mode: perm}
	return nil
}

func (m *MockFS) Stat(path string) (fs.FileInfo, error) {
	if m.StatErr != nil {
		return nil, m.StatErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f, ok := m.files[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), size: int64(len(f.data)), mode: f.mode}, nil
	}
	if _, ok := m.dirs[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), isDir: true, mode: fs.ModeDir | 0755}, nil
	}
	return nil, fs.ErrNotExist
}

func (m *MockFS) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, fileOk := m.files[path]
	_, dirOk := m.dirs[path]
	_, linkOk := m.symlinks[path]
	return fileOk || dirOk || linkOk
}

func (m *MockFS) ReadDir(path string) ([]fs.DirEntry, error) {
	if m.ReadDirErr != nil {
		return nil, m.ReadDirErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.dirs[path]; !ok {
		return nil, fs.ErrNotExist
	}

	entries := make(map[string]fs.DirEntry)

	for p, f := range m.files {
		if filepath.Dir(p) == path {
			name := filepath.Base(p)
			entries[name] = &mockDirEntry{name: name, mode: f.mode}
		}
	}
	for p := range m.symlinks {
		if filepath.Dir(p) == path {
			name := filepath.Base(p)
			entries[name] = &mockDirEntry{name: name, mode: fs.ModeSymlink}
		}
	}
	for p := range m.dirs {
		if filepath.Dir(p) == path {
			name := filepath.Base(p)
			entries[name] = &mockDirEntry{name: name, isDir: true, mode: fs.ModeDir | 0755}
		}
	}

	result := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, e)
	}
	return result, nil
}

func (m *MockFS) EvalSymlinks(path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := 0
	for {
		target, ok := m.symlinks[path]
		if !ok {
			break
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		path = filepath.Clean(target)
		seen++
		if seen > 16 {
			return "", errors.New("too many levels of symbolic links")
		}
	}
	if _, ok := m.files[path]; ok {
		return path, nil
	}
	if _, ok := m.dirs[path]; ok {
		return path, nil
	}
	return "", fs.ErrNotExist
}

func (m *MockFS) IsCharDevice(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	return ok && f.mode&fs.ModeCharDevice != 0
}

func (m *MockFS) DeviceNumbers(path string) (uint32, uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[path]
	if !ok {
		return 0, 0, fs.ErrNotExist
	}
	return d.major, d.minor, nil
}

// mockFileInfo implements fs.FileInfo for testing.
type mockFileInfo struct {
	name  string
	size  int64
	mode  fs.FileMode
	isDir bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// mockDirEntry implements fs.DirEntry for testing.
type mockDirEntry struct {
	name  string
	mode  fs.FileMode
	isDir bool
}

func (m *mockDirEntry) Name() string      { return m.name }
func (m *mockDirEntry) IsDir() bool       { return m.isDir }
func (m *mockDirEntry) Type() fs.FileMode { return m.mode.Type() }
func (m *mockDirEntry) Info() (fs.FileInfo, error) {
	return &mockFileInfo{name: m.name, mode: m.mode, isDir: m.isDir}, nil
}

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command-line prefixes to responses. The longest
	// matching prefix of "name arg1 arg2..." wins, so tests can
	// distinguish "pct set 101 -dev0" from "pct set 101 -usb0".
	Responses map[string]MockResponse

	// Queues maps command-line prefixes to ordered responses, consumed
	// one per invocation. A queue takes precedence over Responses and
	// lets tests script "fails once, then succeeds" behavior.
	Queues map[string][]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse

	// MissingTools lists command names for which LookPath fails.
	MissingTools []string

	// ReplaceProcessErr is returned by ReplaceProcess if set.
	ReplaceProcessErr error
}

// MockCommand records an executed command.
type MockCommand struct {
	Name  string
	Args  []string
	Stdin string
}

// Line returns the full command line for matching in assertions.
func (c MockCommand) Line() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
		Queues:    make(map[string][]MockResponse),
	}
}

// QueueResponse appends a response to the ordered queue for a prefix.
func (m *MockExecutor) QueueResponse(prefix string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queues[prefix] = append(m.Queues[prefix], MockResponse{Output: output, Err: err})
}

// AddResponse adds a response for a command-line prefix.
func (m *MockExecutor) AddResponse(prefix string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[prefix] = MockResponse{Output: output, Err: err}
}

func (m *MockExecutor) respond(line string) MockResponse {
	best := ""
	for prefix, queue := range m.Queues {
		if len(queue) > 0 && strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		resp := m.Queues[best][0]
		m.Queues[best] = m.Queues[best][1:]
		return resp
	}

	for prefix := range m.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return m.Responses[best]
	}
	return m.DefaultResponse
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := MockCommand{Name: name, Args: args}
	m.Commands = append(m.Commands, cmd)

	resp := m.respond(cmd.Line())
	return resp.Output, resp.Err
}

func (m *MockExecutor) ExecuteWithStdin(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := MockCommand{Name: name, Args: args, Stdin: stdin}
	m.Commands = append(m.Commands, cmd)

	resp := m.respond(cmd.Line())
	return resp.Output, resp.Err
}

func (m *MockExecutor) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, missing := range m.MissingTools {
		if missing == name {
			return "", errors.New("executable file not found in $PATH")
		}
	}
	return "/usr/sbin/" + name, nil
}

func (m *MockExecutor) ReplaceProcess(name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, MockCommand{Name: name, Args: args})

	if m.ReplaceProcessErr != nil {
		return m.ReplaceProcessErr
	}
	// Tests cannot actually replace the process.
	return errors.New("mock: ReplaceProcess called (would exec in real implementation)")
}

// CommandLines returns the recorded command lines in execution order.
func (m *MockExecutor) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		lines[i] = c.Line()
	}
	return lines
}

// CountPrefix returns how many recorded command lines start with prefix.
func (m *MockExecutor) CountPrefix(prefix string) int {
	n := 0
	for _, line := range m.CommandLines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// Reset clears all recorded commands.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
}
