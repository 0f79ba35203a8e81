/*
Package longtable is the program-load façade for a compiled Longtable
program (spec.md §6): it bundles the VM's chunk/native pool together with
the compiled rule set, derived-component definitions, and constraints a
host (parser, REPL, debugger) produces, and wires them into a running
Executor with one call.

Longtable itself never parses source text or drives I/O — those are a
compiler's job, out of scope here (spec.md §1 Non-goals). This package
only assembles what a compiler emits into a shape the tick executor,
derived evaluator, and rule engine can run.
*/
package longtable
