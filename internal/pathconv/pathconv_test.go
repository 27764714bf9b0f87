package pathconv

import "testing"

func TestTranslateWindowsToUnix(t *testing.T) {
	t.Parallel()
	tr := Translator{HostStyle: Windows, SubprocessStyle: Unix}
	got, err := tr.Translate(`C:\Users\me\cache\jars\1.21.10\client.jar`)
	if err != nil {
		t.Fatal(err)
	}
	want := "/mnt/c/Users/me/cache/jars/1.21.10/client.jar"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTranslateUnixToWindowsUNC(t *testing.T) {
	t.Parallel()
	tr := Translator{HostStyle: Unix, SubprocessStyle: Windows, DistroName: "Ubuntu"}
	got, err := tr.Translate("/mnt/c/cache/jars/client.jar")
	if err != nil {
		t.Fatal(err)
	}
	if got != `C:\cache\jars\client.jar` {
		t.Fatalf("got %q", got)
	}

	got, err = tr.Translate("/home/me/cache/client.jar")
	if err != nil {
		t.Fatal(err)
	}
	want := `\\localhost\Ubuntu\home\me\cache\client.jar`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTranslatePassthrough(t *testing.T) {
	t.Parallel()
	tr := Translator{HostStyle: Unix, SubprocessStyle: Unix}
	for _, arg := range []string{"", "   ", "--threads", "4", "/already/unix/path"} {
		got, err := tr.Translate(arg)
		if err != nil {
			t.Fatal(err)
		}
		if got != arg {
			t.Fatalf("expected passthrough of %q, got %q", arg, got)
		}
	}
}

func TestTranslateRejectsNullByte(t *testing.T) {
	t.Parallel()
	tr := Translator{HostStyle: Windows, SubprocessStyle: Unix}
	if _, err := tr.Translate("C:\\bad\x00path"); err == nil {
		t.Fatal("expected an error")
	}
}
