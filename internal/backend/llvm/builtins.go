package llvm

import (
	"slices"
	"strings"
)

// Representations shared by runtime entry points.
const (
	rtValuePtr = "{ ptr, i64, i64 }"
	rtString   = "{ ptr, i64, i64, [32 x i8] }"
	rtSpan     = "{ ptr, i64 }"
	rtVec      = "{ ptr, i64, i64, i64, i64, i64, ptr, i8, [3 x i8], i32, [64 x i8] }"
	rtDecimal  = "{ i32, { i32, i32, i32, i32 } }"
)

type builtinDecl struct {
	name   string
	ret    string
	params []string
	// sret marks entries whose aggregate result is written through a leading
	// `ptr sret(T)` argument instead of being returned.
	sret string
}

// runtimeDecls is the fixed C ABI of the runtime library.
func runtimeDecls() []builtinDecl {
	p := func(ps ...string) []string { return ps }
	return []builtinDecl{
		// process
		{name: "chic_rt_panic", ret: "i32", params: p("i32")},
		{name: "chic_rt_abort", ret: "i32", params: p("i32")},
		{name: "chic_rt_has_pending_exception", ret: "i32"},
		{name: "chic_rt_trace_enter", ret: "void", params: p("ptr", "i64")},
		{name: "chic_rt_trace_exit", ret: "void", params: p("ptr", "i64")},

		// memory
		{name: "chic_rt_alloc", ret: rtValuePtr, params: p("i64", "i64")},
		{name: "chic_rt_alloc_zeroed", ret: rtValuePtr, params: p("i64", "i64")},
		{name: "chic_rt_realloc", ret: rtValuePtr, params: p(rtValuePtr, "i64", "i64", "i64")},
		{name: "chic_rt_free", ret: "void", params: p(rtValuePtr)},
		{name: "chic_rt_memcpy", ret: "void", params: p("ptr", "ptr", "i64")},
		{name: "chic_rt_memmove", ret: "void", params: p("ptr", "ptr", "i64")},
		{name: "chic_rt_memset", ret: "void", params: p("ptr", "i8", "i64")},
		{name: "chic_rt_allocator_reset", ret: "void"},
		{name: "chic_rt_object_new", ret: "ptr", params: p("i64")},

		// strings
		{name: "chic_rt_string_new", ret: "void", sret: rtString},
		{name: "chic_rt_string_with_capacity", ret: "void", params: p("i64"), sret: rtString},
		{name: "chic_rt_string_from_slice", ret: "void", params: p(rtSpan), sret: rtString},
		{name: "chic_rt_string_from_char", ret: "void", params: p("i16"), sret: rtString},
		{name: "chic_rt_string_drop", ret: "void", params: p("ptr")},
		{name: "chic_rt_string_clone", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_string_clone_slice", ret: "i32", params: p("ptr", rtSpan)},
		{name: "chic_rt_string_reserve", ret: "i32", params: p("ptr", "i64")},
		{name: "chic_rt_string_push_slice", ret: "i32", params: p("ptr", rtSpan)},
		{name: "chic_rt_string_truncate", ret: "i32", params: p("ptr", "i64")},
		{name: "chic_rt_string_as_slice", ret: rtSpan, params: p("ptr")},
		{name: "chic_rt_string_as_chars", ret: rtSpan, params: p("ptr")},
		{name: "chic_rt_str_as_chars", ret: rtSpan, params: p(rtSpan)},
		{name: "chic_rt_string_get_ptr", ret: "ptr", params: p("ptr")},
		{name: "chic_rt_string_get_len", ret: "i64", params: p("ptr")},
		{name: "chic_rt_string_get_cap", ret: "i64", params: p("ptr")},
		{name: "chic_rt_string_error_message", ret: rtSpan, params: p("i32")},
		{name: "chic_rt_string_append_slice", ret: "i32", params: p("ptr", rtSpan, "i32", "i32")},
		{name: "chic_rt_string_append_bool", ret: "i32", params: p("ptr", "i1", "i32", "i32", rtSpan)},
		{name: "chic_rt_string_append_char", ret: "i32", params: p("ptr", "i16", "i32", "i32", rtSpan)},
		{name: "chic_rt_string_append_signed", ret: "i32", params: p("ptr", "i64", "i64", "i32", "i32", "i32", rtSpan)},
		{name: "chic_rt_string_append_unsigned", ret: "i32", params: p("ptr", "i64", "i64", "i32", "i32", "i32", rtSpan)},
		{name: "chic_rt_string_append_f32", ret: "i32", params: p("ptr", "float", "i32", "i32", rtSpan)},
		{name: "chic_rt_string_append_f64", ret: "i32", params: p("ptr", "double", "i32", "i32", rtSpan)},
		{name: "chic_rt_char_is_digit", ret: "i32", params: p("i16")},
		{name: "chic_rt_char_is_letter", ret: "i32", params: p("i16")},
		{name: "chic_rt_char_is_whitespace", ret: "i32", params: p("i16")},
		{name: "chic_rt_char_to_upper", ret: "i64", params: p("i16")},
		{name: "chic_rt_char_to_lower", ret: "i64", params: p("i16")},

		// vectors and arrays
		{name: "chic_rt_vec_new", ret: "void", params: p("i64", "i64", "i64"), sret: rtVec},
		{name: "chic_rt_vec_with_capacity", ret: "void", params: p("i64", "i64", "i64", "i64"), sret: rtVec},
		{name: "chic_rt_vec_drop", ret: "void", params: p("ptr")},
		{name: "chic_rt_vec_clone", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_vec_reserve", ret: "i32", params: p("ptr", "i64")},
		{name: "chic_rt_vec_push", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_vec_pop", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_vec_insert", ret: "i32", params: p("ptr", "i64", "ptr")},
		{name: "chic_rt_vec_remove", ret: "i32", params: p("ptr", "i64", "ptr")},
		{name: "chic_rt_vec_truncate", ret: "i32", params: p("ptr", "i64")},
		{name: "chic_rt_vec_clear", ret: "i32", params: p("ptr")},
		{name: "chic_rt_vec_set_len", ret: "i32", params: p("ptr", "i64")},
		{name: "chic_rt_vec_len", ret: "i64", params: p("ptr")},
		{name: "chic_rt_vec_capacity", ret: "i64", params: p("ptr")},
		{name: "chic_rt_vec_is_empty", ret: "i32", params: p("ptr")},
		{name: "chic_rt_vec_data", ret: rtValuePtr, params: p("ptr")},
		{name: "chic_rt_vec_data_mut", ret: rtValuePtr, params: p("ptr")},
		{name: "chic_rt_vec_ptr_at", ret: rtValuePtr, params: p("ptr", "i64")},
		{name: "chic_rt_array_ptr_at", ret: rtValuePtr, params: p("ptr", "i64")},
		{name: "chic_rt_array_len", ret: "i64", params: p("ptr")},
		{name: "chic_rt_vec_into_array", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_array_into_vec", ret: "i32", params: p("ptr", "ptr")},

		// hash containers
		{name: "chic_rt_hashmap_drop", ret: "void", params: p("ptr")},
		{name: "chic_rt_hashmap_len", ret: "i64", params: p("ptr")},
		{name: "chic_rt_hashmap_clear", ret: "i32", params: p("ptr")},
		{name: "chic_rt_hashmap_contains", ret: "i32", params: p("ptr", "i64", "ptr")},
		{name: "chic_rt_hashmap_get_ptr", ret: rtValuePtr, params: p("ptr", "i64", "ptr")},
		{name: "chic_rt_hashmap_remove", ret: "i32", params: p("ptr", "i64", "ptr")},
		{name: "chic_rt_hashset_drop", ret: "void", params: p("ptr")},
		{name: "chic_rt_hashset_len", ret: "i64", params: p("ptr")},
		{name: "chic_rt_hashset_clear", ret: "i32", params: p("ptr")},
		{name: "chic_rt_hashset_contains", ret: "i32", params: p("ptr", "i64", "ptr")},
		{name: "chic_rt_hashset_remove", ret: "i32", params: p("ptr", "i64", "ptr")},
		{name: "chic_rt_hash_invoke", ret: "i64", params: p("i64", "ptr")},
		{name: "chic_rt_eq_invoke", ret: "i32", params: p("i64", "ptr", "ptr")},

		// shared ownership
		{name: "chic_rt_arc_new", ret: "i32", params: p("ptr", "ptr", "i64", "i64", "i64", "i64")},
		{name: "chic_rt_arc_clone", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_arc_drop", ret: "void", params: p("ptr")},
		{name: "chic_rt_arc_get", ret: "ptr", params: p("ptr")},
		{name: "chic_rt_arc_get_mut", ret: "ptr", params: p("ptr")},
		{name: "chic_rt_arc_strong_count", ret: "i64", params: p("ptr")},
		{name: "chic_rt_arc_downgrade", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_weak_upgrade", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_weak_drop", ret: "void", params: p("ptr")},
		{name: "chic_rt_rc_new", ret: "i32", params: p("ptr", "ptr", "i64", "i64", "i64", "i64")},
		{name: "chic_rt_rc_clone", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_rc_drop", ret: "void", params: p("ptr")},
		{name: "chic_rt_rc_get", ret: "ptr", params: p("ptr")},

		// closures
		{name: "chic_rt_closure_env_alloc", ret: "ptr", params: p("i64", "i64")},
		{name: "chic_rt_closure_env_clone", ret: "ptr", params: p("ptr", "i64", "i64")},
		{name: "chic_rt_closure_env_free", ret: "void", params: p("ptr", "i64", "i64")},

		// atomics
		{name: "chic_rt_atomic_load_i64", ret: "i64", params: p("ptr", "i32")},
		{name: "chic_rt_atomic_store_i64", ret: "void", params: p("ptr", "i64", "i32")},
		{name: "chic_rt_atomic_fetch_add_i64", ret: "i64", params: p("ptr", "i64", "i32")},
		{name: "chic_rt_atomic_cmpxchg_i64", ret: "i8", params: p("ptr", "i64", "i64", "i32", "i32")},
		{name: "chic_rt_atomic_fence", ret: "void", params: p("i32")},

		// threads and synchronization
		{name: "chic_rt_thread_spawn", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_thread_join", ret: "i32", params: p("ptr")},
		{name: "chic_rt_thread_detach", ret: "i32", params: p("ptr")},
		{name: "chic_rt_thread_sleep_ms", ret: "void", params: p("i64")},
		{name: "chic_rt_thread_yield", ret: "void"},
		{name: "chic_rt_mutex_create", ret: "i64"},
		{name: "chic_rt_mutex_destroy", ret: "void", params: p("i64")},
		{name: "chic_rt_mutex_lock", ret: "void", params: p("i64")},
		{name: "chic_rt_mutex_try_lock", ret: "i8", params: p("i64")},
		{name: "chic_rt_mutex_unlock", ret: "void", params: p("i64")},
		{name: "chic_rt_rwlock_create", ret: "i64"},
		{name: "chic_rt_rwlock_read_lock", ret: "void", params: p("i64")},
		{name: "chic_rt_rwlock_write_lock", ret: "void", params: p("i64")},
		{name: "chic_rt_rwlock_unlock", ret: "void", params: p("i64")},
		{name: "chic_rt_condvar_create", ret: "i64"},
		{name: "chic_rt_condvar_wait", ret: "void", params: p("i64", "i64")},
		{name: "chic_rt_condvar_notify_one", ret: "void", params: p("i64")},
		{name: "chic_rt_condvar_notify_all", ret: "void", params: p("i64")},
		{name: "chic_rt_once_create", ret: "i64"},
		{name: "chic_rt_once_call", ret: "void", params: p("i64", "ptr", "ptr")},

		// async
		{name: "chic_rt_async_register_future", ret: "void", params: p("ptr")},
		{name: "chic_rt_async_spawn", ret: "void", params: p("ptr")},
		{name: "chic_rt_async_spawn_local", ret: "i32", params: p("ptr")},
		{name: "chic_rt_async_block_on", ret: "void", params: p("ptr")},
		{name: "chic_rt_async_scope", ret: "i32", params: p("ptr")},
		{name: "chic_rt_async_cancel", ret: "i32", params: p("ptr")},
		{name: "chic_rt_async_task_header", ret: "ptr", params: p("ptr")},
		{name: "chic_rt_async_task_result", ret: "i32", params: p("ptr", "ptr", "i32")},
		{name: "chic_rt_async_task_int_result", ret: "i32", params: p("ptr")},
		{name: "chic_rt_async_task_bool_result", ret: "i8", params: p("ptr")},
		{name: "chic_rt_async_token_new", ret: "ptr"},
		{name: "chic_rt_async_token_state", ret: "i8", params: p("ptr")},
		{name: "chic_rt_async_token_cancel", ret: "i8", params: p("ptr")},

		// startup
		{name: "chic_rt_startup_store_state", ret: "void", params: p("i32", "ptr", "ptr")},
		{name: "chic_rt_startup_raw_argc", ret: "i32"},
		{name: "chic_rt_startup_raw_argv", ret: "ptr"},
		{name: "chic_rt_startup_raw_envp", ret: "ptr"},
		{name: "chic_rt_startup_argv", ret: "i64", params: p("i32")},
		{name: "chic_rt_startup_env", ret: "i64", params: p("i32")},
		{name: "chic_rt_startup_ptr_at", ret: "i64", params: p("i64", "i32", "i32")},
		{name: "chic_rt_startup_call_entry", ret: "i32", params: p("ptr", "i32", "i32", "ptr", "ptr")},
		{name: "chic_rt_startup_call_entry_async", ret: "ptr", params: p("ptr", "i32", "i32", "ptr", "ptr")},
		{name: "chic_rt_startup_complete_entry_async", ret: "i32", params: p("ptr", "i32")},
		{name: "chic_rt_startup_call_testcase", ret: "i32", params: p("ptr")},
		{name: "chic_rt_startup_call_testcase_async", ret: "ptr", params: p("ptr")},
		{name: "chic_rt_startup_complete_testcase_async", ret: "i32", params: p("ptr")},
		{name: "chic_rt_startup_has_run_tests_flag", ret: "i32"},
		{name: "chic_rt_startup_test_descriptor", ret: "void", params: p("ptr", "i64")},
		{name: "chic_rt_startup_exit", ret: "void", params: p("i32")},
		{name: "chic_rt_startup_i32_to_string", ret: "void", params: p("i32"), sret: rtString},
		{name: "chic_rt_startup_usize_to_string", ret: "void", params: p("i64"), sret: rtString},
		{name: "chic_rt_startup_slice_to_string", ret: "void", params: p("ptr", "i64"), sret: rtString},
		{name: "chic_rt_startup_cstr_to_string", ret: "void", params: p("ptr"), sret: rtString},

		// stdio
		{name: "chic_rt_stdout_write", ret: "i32", params: p(rtSpan)},
		{name: "chic_rt_stderr_write", ret: "i32", params: p(rtSpan)},
		{name: "chic_rt_stdout_flush", ret: "i32"},

		// decimal
		{name: "chic_rt_decimal_add", ret: "i32", params: p("ptr", "ptr", "ptr", "i32", "i32")},
		{name: "chic_rt_decimal_sub", ret: "i32", params: p("ptr", "ptr", "ptr", "i32", "i32")},
		{name: "chic_rt_decimal_mul", ret: "i32", params: p("ptr", "ptr", "ptr", "i32", "i32")},
		{name: "chic_rt_decimal_div", ret: "i32", params: p("ptr", "ptr", "ptr", "i32", "i32")},
		{name: "chic_rt_decimal_rem", ret: "i32", params: p("ptr", "ptr", "ptr", "i32", "i32")},
		{name: "chic_rt_decimal_clone", ret: "i32", params: p("ptr", "ptr")},
		{name: "chic_rt_decimal_matmul", ret: "i32", params: p("ptr", "i64", "ptr", "i64", "ptr", "i32", "i32")},
		{name: "chic_rt_decimal_sum", ret: rtDecimal, params: p(rtSpan, "i32", "i32")},
		{name: "chic_rt_decimal_dot", ret: rtDecimal, params: p(rtSpan, rtSpan, "i32", "i32")},
		{name: "chic_rt_decimal_sum_simd", ret: rtDecimal, params: p(rtSpan, "i32", "i32")},
		{name: "chic_rt_decimal_dot_simd", ret: rtDecimal, params: p(rtSpan, rtSpan, "i32", "i32")},

		// hardware and ffi
		{name: "chic_rt_mmio_read", ret: "i64", params: p("i64", "i32", "i32")},
		{name: "chic_rt_mmio_write", ret: "void", params: p("i64", "i64", "i32", "i32")},
		{name: "chic_rt_ffi_resolve", ret: "ptr", params: p("ptr")},
		{name: "chic_rt_ffi_eager_resolve", ret: "i32", params: p("ptr")},
	}
}

// runtimeCatalog is the frozen name -> signature registry built from
// runtimeDecls.
type runtimeCatalog map[string]*Signature

var runtimeSigs = buildRuntimeCatalog()

func buildRuntimeCatalog() runtimeCatalog {
	decls := runtimeDecls()
	m := make(runtimeCatalog, len(decls))
	for _, d := range decls {
		sig := &Signature{
			Name:    d.name,
			Symbol:  d.name,
			Ret:     d.ret,
			Params:  slices.Clone(d.params),
			Arity:   len(d.params),
			Runtime: true,
			RawRet:  d.ret,
		}
		sig.RawParams = slices.Clone(d.params)
		sig.ParamAttrs = make([][]string, len(sig.Params))
		if d.ret == "void" {
			sig.RawRet = ""
		}
		if d.sret != "" {
			sig.RawRet = d.sret
			sig.Params = append([]string{reprPtr}, sig.Params...)
			sig.ParamAttrs = append([][]string{{"sret(" + d.sret + ")", "align 8"}}, sig.ParamAttrs...)
			sig.SretType = d.sret
		}
		m[d.name] = sig
	}
	return m
}

func (c runtimeCatalog) lookup(name string) (*Signature, bool) {
	if sig, ok := c[name]; ok {
		return sig, true
	}
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		sig, ok := c[name[idx+2:]]
		return sig, ok
	}
	return nil, false
}

// isRuntimeSymbol reports whether name is a runtime library entry point.
func isRuntimeSymbol(name string) bool {
	_, ok := runtimeSigs[name]
	return ok
}

// RuntimeNames returns every catalogued entry point in sorted order.
func RuntimeNames() []string {
	names := make([]string, 0, len(runtimeSigs))
	for name := range runtimeSigs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
