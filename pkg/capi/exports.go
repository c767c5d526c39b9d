package main

/*
#include <stdlib.h>
#include <stdint.h>
*/
import "C"
import "unsafe"

// export hands result to C and maps err to the return code.
func export(result string, err error, out **C.char) C.int {
	*out = C.CString(result)
	if err != nil {
		return -1
	}
	return 0
}

//export ttt_version
func ttt_version() *C.char {
	return C.CString(version)
}

//export ttt_last_error
func ttt_last_error() *C.char {
	msg := lastErrorMessage()
	if msg == "" {
		return nil
	}
	return C.CString(msg)
}

//export ttt_init
func ttt_init(seed C.int64_t, cacheSize C.uint32_t) C.int {
	if err := initEngine(int64(seed), uint32(cacheSize)); err != nil {
		return -1
	}
	return 0
}

//export ttt_shutdown
func ttt_shutdown() {
	shutdownEngine()
}

//export ttt_choose_move
func ttt_choose_move(positionID, difficulty *C.char, resultJSON **C.char) C.int {
	d := ""
	if difficulty != nil {
		d = C.GoString(difficulty)
	}
	result, err := chooseMoveJSON(C.GoString(positionID), d)
	return export(result, err, resultJSON)
}

//export ttt_analyze
func ttt_analyze(positionID *C.char, resultJSON **C.char) C.int {
	result, err := analyzeJSON(C.GoString(positionID))
	return export(result, err, resultJSON)
}

//export ttt_tutor
func ttt_tutor(positionID *C.char, index C.int, resultJSON **C.char) C.int {
	result, err := tutorJSON(C.GoString(positionID), int(index))
	return export(result, err, resultJSON)
}

//export ttt_free_string
func ttt_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}
