package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/regvm/emulator"
)

func execute(args ...string) (out string, err error) {
	buf := &bytes.Buffer{}
	root := rootCommand()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	out = buf.String()
	return
}

const testSource = `; sum 1..COUNT into f
.equ COUNT 4
	move byte e 0
	move byte f 0
:loop
	move a e
	move byte b 1
	add
	move e c       ; e += 1
	move a f
	move b e
	add
	move f c       ; f += e
	move a e
	move byte b COUNT
	equal
	jump :loop false
	halt
`

func TestCommands(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "sum.asm")
	img := filepath.Join(dir, "sum.bin")
	assert.NoError(os.WriteFile(src, []byte(testSource), 0o644))

	_, err := execute("asm", "-g", src, img)
	assert.NoError(err)
	assert.FileExists(img)
	assert.FileExists(img + ".sym")

	out, err := execute("run", img)
	assert.NoError(err)
	assert.Contains(out, "    f: 00000000_0000000A")

	out, err = execute("dump", "-s", img+".sym", img)
	assert.NoError(err)
	assert.True(strings.HasPrefix(out, "000000: move byte e 0\n"), out)
	assert.Contains(out, ":loop\n")
	assert.Contains(out, "halt\n")

	out, err = execute("dump", "--struct", img)
	assert.NoError(err)
	assert.Contains(out, "Op:")
}

func TestCommandErrors(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "bad.asm")
	img := filepath.Join(dir, "bad.bin")
	assert.NoError(os.WriteFile(src, []byte("halt\njump :nowhere\n"), 0o644))

	_, err := execute("asm", src, img)
	assert.Error(err)
	assert.NoFileExists(img)

	assert.NoError(os.WriteFile(src, []byte(":spin\njump :spin\n"), 0o644))
	_, err = execute("asm", "-g", src, img)
	assert.NoError(err)

	cfg := filepath.Join(dir, "regvm.toml")
	assert.NoError(os.WriteFile(cfg, []byte("max_ticks = 10\n"), 0o644))
	_, err = execute("run", "-c", cfg, "-s", img+".sym", img)
	assert.ErrorIs(err, emulator.ErrTickBudget)

	_, err = execute("run", filepath.Join(dir, "missing.bin"))
	assert.Error(err)

	_, err = execute("asm", src)
	assert.Error(err)
}
