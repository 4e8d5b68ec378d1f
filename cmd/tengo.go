package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/parser"
	"github.com/spf13/cobra"
	script "vesta/lib/component/function/tengo"
	"vesta/vesta"
)

func init() {
	var (
		message string
		meta    map[string]string
	)
	cmd := &cobra.Command{
		Use:   "tengo",
		Short: "run REPL",
		Long:  `run tengo REPL to try tengo-filter and tengo-map scripts against a sample event`,
		RunE: func(cmd *cobra.Command, args []string) error {
			event := &vesta.Event{Meta: map[string]any{}, Message: message, Time: time.Now()}
			for key, value := range meta {
				event.Meta[key] = value
			}
			object, err := script.Object(event)
			if err != nil {
				return err
			}
			RunREPL(script.Modules(), object, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "message of the sample event bound to event")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "meta of the sample event, like level=warn")
	Command.AddCommand(cmd)
}

const (
	replPrompt = ">> "
	replPrint  = "__repl_println__"
)

// printer writes its arguments space separated on one line
func printer(out io.Writer) *tengo.UserFunction {
	return &tengo.UserFunction{
		Name: "println",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			values := make([]string, 0, len(args))
			for _, arg := range args {
				if _, isUndefined := arg.(*tengo.Undefined); isUndefined {
					values = append(values, "<undefined>")
					continue
				}
				s, _ := tengo.ToString(arg)
				values = append(values, s)
			}
			_, _ = fmt.Fprintln(out, strings.Join(values, " "))
			return nil, nil
		},
	}
}

// RunREPL reads one statement per line and prints every expression value
func RunREPL(modules *tengo.ModuleMap, event tengo.Object, in io.Reader, out io.Writer) {
	stdin := bufio.NewScanner(in)
	fileSet := parser.NewFileSet()
	globals := make([]tengo.Object, tengo.GlobalsSize)
	symbolTable := tengo.NewSymbolTable()
	for idx, fn := range tengo.GetAllBuiltinFunctions() {
		symbolTable.DefineBuiltin(idx, fn.Name)
	}

	eventSymbol := symbolTable.Define("event")
	globals[eventSymbol.Index] = event

	printSymbol := symbolTable.Define(replPrint)
	globals[printSymbol.Index] = printer(out)

	var constants []tengo.Object
	for {
		_, _ = fmt.Fprint(out, replPrompt)
		scanned := stdin.Scan()
		if !scanned {
			return
		}

		line := stdin.Text()
		srcFile := fileSet.AddFile("repl", -1, len(line))
		p := parser.NewParser(srcFile, []byte(line), nil)
		file, err := p.ParseFile()
		if err != nil {
			_, _ = fmt.Fprintln(out, err.Error())
			continue
		}

		file = withPrints(file)
		c := tengo.NewCompiler(srcFile, symbolTable, constants, modules, nil)
		if err := c.Compile(file); err != nil {
			_, _ = fmt.Fprintln(out, err.Error())
			continue
		}

		bytecode := c.Bytecode()
		machine := tengo.NewVM(bytecode, globals, -1)
		if err := machine.Run(); err != nil {
			_, _ = fmt.Fprintln(out, err.Error())
			continue
		}
		constants = bytecode.Constants
	}
}

// withPrints prints the value of every expression and the targets of every assignment
func withPrints(file *parser.File) *parser.File {
	var stmts []parser.Stmt
	for _, s := range file.Stmts {
		switch s := s.(type) {
		case *parser.ExprStmt:
			stmts = append(stmts, &parser.ExprStmt{
				Expr: &parser.CallExpr{
					Func: &parser.Ident{Name: replPrint},
					Args: []parser.Expr{s.Expr},
				},
			})
		case *parser.AssignStmt:
			stmts = append(stmts, s)

			stmts = append(stmts, &parser.ExprStmt{
				Expr: &parser.CallExpr{
					Func: &parser.Ident{
						Name: replPrint,
					},
					Args: s.LHS,
				},
			})
		default:
			stmts = append(stmts, s)
		}
	}
	return &parser.File{
		InputFile: file.InputFile,
		Stmts:     stmts,
	}
}
