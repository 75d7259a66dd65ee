package blockproc

// Builtin lists the four block processors this package ships, keyed by the view
// name each materializes. The batch update engine and JIT partitioner
// look a processor up here by the view set they're updating rather
// than switching on view name themselves.
var Builtin = map[string]Processor{
	(LogEntries{}).ViewName():   LogEntries{},
	(Measures{}).ViewName():     Measures{},
	(ThreadEvents{}).ViewName(): ThreadEvents{},
	(AsyncEvents{}).ViewName():  AsyncEvents{},
}
