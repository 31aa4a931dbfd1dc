package process

// UpdateKind controls when a descriptive field is (re)read.
type UpdateKind uint8

const (
	// UpdateNever never reads the field.
	UpdateNever UpdateKind = iota
	// UpdateAlways reads the field on every refresh.
	UpdateAlways
	// UpdateOnlyIfNotSet reads the field until it holds a non-empty value.
	UpdateOnlyIfNotSet
)

func (u UpdateKind) needed(isSet bool) bool {
	switch u {
	case UpdateAlways:
		return true
	case UpdateOnlyIfNotSet:
		return !isSet
	default:
		return false
	}
}

// RefreshKind selects which sub-reads a refresh performs. Each toggle trades
// completeness for latency independently of the others; the stat line
// (name, status, parent, start time) is always read.
type RefreshKind struct {
	CPU       bool
	Memory    bool
	DiskUsage bool
	Tasks     bool

	Cmd     UpdateKind
	Environ UpdateKind
	Cwd     UpdateKind
	Root    UpdateKind
	Exe     UpdateKind
	User    UpdateKind
}

// NewRefreshKind returns a RefreshKind with every toggle off.
func NewRefreshKind() RefreshKind { return RefreshKind{} }

// Everything returns a RefreshKind with every toggle on. Descriptive fields
// that rarely change are read once (UpdateOnlyIfNotSet).
func Everything() RefreshKind {
	return RefreshKind{
		CPU:       true,
		Memory:    true,
		DiskUsage: true,
		Tasks:     true,
		Cmd:       UpdateOnlyIfNotSet,
		Environ:   UpdateOnlyIfNotSet,
		Cwd:       UpdateAlways,
		Root:      UpdateOnlyIfNotSet,
		Exe:       UpdateOnlyIfNotSet,
		User:      UpdateOnlyIfNotSet,
	}
}

func (k RefreshKind) WithCPU() RefreshKind       { k.CPU = true; return k }
func (k RefreshKind) WithMemory() RefreshKind    { k.Memory = true; return k }
func (k RefreshKind) WithDiskUsage() RefreshKind { k.DiskUsage = true; return k }
func (k RefreshKind) WithTasks() RefreshKind     { k.Tasks = true; return k }
func (k RefreshKind) WithCmd(u UpdateKind) RefreshKind {
	k.Cmd = u
	return k
}
func (k RefreshKind) WithEnviron(u UpdateKind) RefreshKind {
	k.Environ = u
	return k
}
func (k RefreshKind) WithCwd(u UpdateKind) RefreshKind {
	k.Cwd = u
	return k
}
func (k RefreshKind) WithRoot(u UpdateKind) RefreshKind {
	k.Root = u
	return k
}
func (k RefreshKind) WithExe(u UpdateKind) RefreshKind {
	k.Exe = u
	return k
}
func (k RefreshKind) WithUser(u UpdateKind) RefreshKind {
	k.User = u
	return k
}

// Fields is the set of sub-reads a Source is asked to perform, or reports
// as performed in a Snapshot.
type Fields uint16

const (
	FieldCPU Fields = 1 << iota
	FieldMemory
	FieldDiskUsage
	FieldTasks
	FieldCmd
	FieldEnviron
	FieldCwd
	FieldRoot
	FieldExe
	FieldUser
)

// Has reports whether every field in f is present in fs.
func (fs Fields) Has(f Fields) bool { return fs&f == f }

// resolve turns the toggles into a concrete field set for one record. prev
// is nil for a process seen for the first time.
func (k RefreshKind) resolve(prev *Process) Fields {
	var fs Fields
	if k.CPU {
		fs |= FieldCPU
	}
	if k.Memory {
		fs |= FieldMemory
	}
	if k.DiskUsage {
		fs |= FieldDiskUsage
	}
	if k.Tasks {
		fs |= FieldTasks
	}

	set := func(u UpdateKind, f Fields, isSet func(*Process) bool) {
		if u.needed(prev != nil && isSet(prev)) {
			fs |= f
		}
	}
	set(k.Cmd, FieldCmd, func(p *Process) bool { return len(p.cmd) > 0 })
	set(k.Environ, FieldEnviron, func(p *Process) bool { return len(p.environ) > 0 })
	set(k.Cwd, FieldCwd, func(p *Process) bool { return p.cwd != "" })
	set(k.Root, FieldRoot, func(p *Process) bool { return p.root != "" })
	set(k.Exe, FieldExe, func(p *Process) bool { return p.exe != "" })
	set(k.User, FieldUser, func(p *Process) bool { return p.hasUser })
	return fs
}
