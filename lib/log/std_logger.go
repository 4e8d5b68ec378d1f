package log

import (
	"fmt"

	"vesta/vesta"
)

// StdLogger adapts a vesta.Logger to the std log method set the ants pool and tail expect
type StdLogger struct {
	vesta.Logger
}

func (l *StdLogger) Fatalln(v ...interface{}) {
	l.Logger.Fatal(v...)
}

func (l *StdLogger) Panic(v ...interface{}) {
	l.Logger.Error(v...)
	panic(fmt.Sprint(v...))
}

func (l *StdLogger) Panicf(format string, v ...interface{}) {
	l.Logger.Errorf(format, v...)
	panic(fmt.Sprintf(format, v...))
}

func (l *StdLogger) Panicln(v ...interface{}) {
	l.Logger.Error(v...)
	panic(fmt.Sprint(v...))
}

func (l *StdLogger) Print(v ...interface{}) {
	l.Logger.Debug(v...)
}

func (l *StdLogger) Println(v ...interface{}) {
	l.Logger.Debug(v...)
}

func (l *StdLogger) Printf(format string, args ...interface{}) {
	l.Logger.Debugf(format, args...)
}
